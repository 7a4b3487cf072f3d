// Copyright 2025 Graphmill
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@graphmill.io
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the project configuration file looked up in the
// current directory when --config is not given.
const DefaultConfigPath = "harvest.yaml"

// Config is the harvest.yaml project configuration. Every field has a
// default, and run flags override whatever the file says, so the file itself
// is optional.
type Config struct {
	// Entity is the logical name of what is harvested (e.g. "films"). It
	// names the workspace directory and the merged artifacts.
	Entity string `yaml:"entity"`

	// Subject steers the extractor's relevance scoring.
	Subject string `yaml:"subject"`

	// Input is the default document list (JSON array or JSONL).
	Input string `yaml:"input"`

	// BaseDir overrides where workspaces live.
	// Empty means $HARVEST_DATA_DIR, then ~/.harvest/data.
	BaseDir string `yaml:"base_dir"`

	Provider ProviderSettings `yaml:"provider"`
	Run      RunSettings      `yaml:"run"`
}

// ProviderSettings configures the LLM backend used by the extractor.
type ProviderSettings struct {
	// Type is one of ollama, openai, anthropic, mock.
	Type string `yaml:"type"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey for authenticated providers. Prefer the provider's environment
	// variable over committing a key to harvest.yaml.
	APIKey string `yaml:"api_key"`

	// Model is the chat model name.
	Model string `yaml:"model"`

	// TimeoutSeconds bounds a single provider request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// RunSettings configures the batch engine.
type RunSettings struct {
	// Workers is the bounded worker count per sub-batch.
	Workers int `yaml:"workers"`

	// SubBatch is the maximum sub-batch size.
	SubBatch int `yaml:"subbatch"`

	// CheckpointInterval flushes a shard once this many items have been
	// attempted since the last flush.
	CheckpointInterval int `yaml:"checkpoint_interval"`

	// Threshold is the minimum relevance score for the qualifying subset.
	Threshold float64 `yaml:"threshold"`

	// MaxRetries is the number of additional attempts per item.
	MaxRetries int `yaml:"max_retries"`
}

// DefaultConfig returns the configuration used when harvest.yaml is absent.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderSettings{
			Type:           "ollama",
			TimeoutSeconds: 120,
		},
		Run: RunSettings{
			Workers:            4,
			SubBatch:           20,
			CheckpointInterval: 10,
			Threshold:          0.5,
			MaxRetries:         2,
		},
	}
}

// LoadConfig reads a harvest.yaml, layering it over the defaults.
//
// With an empty path the default ./harvest.yaml is used and a missing file is
// not an error; an explicitly named file must exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the user's own --config flag
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, used to seed an example project file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Run.Threshold < 0 || c.Run.Threshold > 1 {
		return fmt.Errorf("run.threshold must be within [0,1], got %g", c.Run.Threshold)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be >= 1, got %d", c.Run.Workers)
	}
	if c.Run.SubBatch < 1 {
		return fmt.Errorf("run.subbatch must be >= 1, got %d", c.Run.SubBatch)
	}
	if c.Run.CheckpointInterval < 1 {
		return fmt.Errorf("run.checkpoint_interval must be >= 1, got %d", c.Run.CheckpointInterval)
	}
	if c.Run.MaxRetries < 0 {
		return fmt.Errorf("run.max_retries must be >= 0, got %d", c.Run.MaxRetries)
	}
	return nil
}

// ProviderTimeout returns the request timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	if c.Provider.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}
