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

package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceConfig holds configuration for locating a run workspace.
type WorkspaceConfig struct {
	// Entity is the logical name of what is being harvested (e.g. "films").
	// It becomes the workspace directory name and the merged artifact label.
	Entity string

	// BaseDir is the directory under which workspaces live.
	// Defaults to $HARVEST_DATA_DIR, then ~/.harvest/data.
	BaseDir string
}

// WorkspaceInfo holds the resolved paths of a workspace.
type WorkspaceInfo struct {
	Entity        string
	Dir           string
	CheckpointDir string
}

// CheckpointSubdir is the per-workspace directory holding the ledger, shard
// files, and errors artifact. Merged artifacts live in the workspace root.
const CheckpointSubdir = "checkpoints"

func resolve(config WorkspaceConfig) (WorkspaceConfig, error) {
	if config.Entity == "" {
		return config, fmt.Errorf("entity is required")
	}
	if strings.ContainsAny(config.Entity, `/\`) {
		return config, fmt.Errorf("entity %q must not contain path separators", config.Entity)
	}
	if config.BaseDir == "" {
		config.BaseDir = os.Getenv("HARVEST_DATA_DIR")
	}
	if config.BaseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return config, fmt.Errorf("get home dir: %w", err)
		}
		config.BaseDir = filepath.Join(homeDir, ".harvest", "data")
	}
	return config, nil
}

func info(config WorkspaceConfig) *WorkspaceInfo {
	dir := filepath.Join(config.BaseDir, config.Entity)
	return &WorkspaceInfo{
		Entity:        config.Entity,
		Dir:           dir,
		CheckpointDir: filepath.Join(dir, CheckpointSubdir),
	}
}

// InitWorkspace creates (or reuses) the workspace for an entity. It is
// idempotent: an existing workspace with prior checkpoints is left as is, so
// a resumed run picks up where the last one stopped.
func InitWorkspace(config WorkspaceConfig, logger *slog.Logger) (*WorkspaceInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	config, err := resolve(config)
	if err != nil {
		return nil, err
	}
	ws := info(config)

	logger.Info("bootstrap.workspace.init",
		"entity", ws.Entity,
		"dir", ws.Dir,
	)

	if err := os.MkdirAll(ws.CheckpointDir, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// OpenWorkspace resolves an existing workspace without creating it. It fails
// if no run has ever touched the entity.
func OpenWorkspace(config WorkspaceConfig, logger *slog.Logger) (*WorkspaceInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	config, err := resolve(config)
	if err != nil {
		return nil, err
	}
	ws := info(config)

	if _, err := os.Stat(ws.Dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("workspace not found: %s (run 'harvest run' first)", ws.Dir)
	}

	logger.Debug("bootstrap.workspace.open",
		"entity", ws.Entity,
		"dir", ws.Dir,
	)
	return ws, nil
}

// ListWorkspaces returns the entities with a workspace under baseDir.
// An empty baseDir uses the same resolution as InitWorkspace.
func ListWorkspaces(baseDir string) ([]string, error) {
	if baseDir == "" {
		baseDir = os.Getenv("HARVEST_DATA_DIR")
	}
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".harvest", "data")
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no workspaces yet
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var entities []string
	for _, entry := range entries {
		if entry.IsDir() {
			entities = append(entities, entry.Name())
		}
	}
	return entities, nil
}
