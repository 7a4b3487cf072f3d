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
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/graphmill/harvest/internal/bootstrap"
	"github.com/graphmill/harvest/internal/output"
	"github.com/graphmill/harvest/pkg/batch"
)

// StatusResult represents a workspace's harvest state for JSON output.
type StatusResult struct {
	Entity         string    `json:"entity"`
	Dir            string    `json:"dir"`
	Completed      int       `json:"completed"`
	Shards         int       `json:"shards"`
	Errors         int       `json:"errors"`
	MergedAll      bool      `json:"merged_all"`
	MergedScored   int       `json:"merged_scored"`
	MergedRelevant bool      `json:"merged_relevant"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, reporting the harvest state of
// a workspace: ledger size, shard count, error count, and whether the merged
// artifacts exist.
//
// Without --entity (and with none in the config) it lists all workspaces.
//
// Flags:
//   - --entity: Workspace name
//   - --json handled globally
//
// Examples:
//
//	harvest status --entity films
//	harvest status --entity films --json
//	harvest status                     List all workspaces
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	entity := fs.String("entity", "", "Workspace name (e.g. films)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: harvest status [options]

Shows the harvest state of a workspace, or lists workspaces when no entity
is given.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *entity != "" {
		cfg.Entity = *entity
	}

	if cfg.Entity == "" {
		listAllWorkspaces(cfg.BaseDir, globals)
		return
	}

	result := collectStatus(cfg)

	if globals.JSON {
		_ = output.JSON(result)
		if result.Error != "" {
			os.Exit(1)
		}
		return
	}

	if result.Error != "" {
		fmt.Printf("Entity '%s' has no harvest data yet.\n", cfg.Entity)
		fmt.Println("Run 'harvest run' to start one.")
		return
	}
	printStatus(result)
}

// collectStatus gathers the workspace state from disk. A missing workspace is
// reported through the Error field rather than aborting, so --json callers
// always get a well-formed document.
func collectStatus(cfg *Config) *StatusResult {
	result := &StatusResult{
		Entity:    cfg.Entity,
		Timestamp: time.Now(),
	}

	ws, err := bootstrap.OpenWorkspace(bootstrap.WorkspaceConfig{
		Entity:  cfg.Entity,
		BaseDir: cfg.BaseDir,
	}, slog.Default())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Dir = ws.Dir

	if ledger, err := batch.LoadLedger(ws.CheckpointDir); err == nil {
		result.Completed = ledger.Size()
	}

	if shards, err := batch.ShardFiles(ws.CheckpointDir); err == nil {
		result.Shards = len(shards)
	}

	result.Errors = countErrorRecords(filepath.Join(ws.CheckpointDir, batch.ErrorsFileName))

	allPath := filepath.Join(ws.Dir, fmt.Sprintf("all_%s_scored.json", cfg.Entity))
	if n, ok := countJSONArray(allPath); ok {
		result.MergedAll = true
		result.MergedScored = n
	}
	relPath := filepath.Join(ws.Dir, fmt.Sprintf("relevant_%s.json", cfg.Entity))
	if _, err := os.Stat(relPath); err == nil {
		result.MergedRelevant = true
	}

	return result
}

// countErrorRecords returns the number of records in an errors artifact, or 0
// when the file is absent or unreadable.
func countErrorRecords(path string) int {
	n, _ := countJSONArray(path)
	return n
}

// countJSONArray reads a JSON array file and returns its length. The second
// return reports whether the file existed and parsed.
func countJSONArray(path string) (int, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path derived from workspace dir
	if err != nil {
		return 0, false
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, false
	}
	return len(records), true
}

// listAllWorkspaces prints every entity with a workspace under the base dir.
func listAllWorkspaces(baseDir string, globals GlobalFlags) {
	entities, err := bootstrap.ListWorkspaces(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if globals.JSON {
		if entities == nil {
			entities = []string{}
		}
		_ = output.JSON(map[string]any{"workspaces": entities})
		return
	}

	if len(entities) == 0 {
		fmt.Println("No harvest workspaces yet.")
		fmt.Println("Run 'harvest run --input docs.json --entity <name>' to start one.")
		return
	}

	fmt.Println("Harvest workspaces:")
	for _, e := range entities {
		fmt.Printf("  %s\n", e)
	}
	fmt.Println("\nFor details: harvest status --entity <name>")
}

// printStatus prints the status result as formatted text to stdout.
func printStatus(result *StatusResult) {
	fmt.Println("Harvest Workspace Status")
	fmt.Println("========================")
	fmt.Printf("Entity:        %s\n", result.Entity)
	fmt.Printf("Workspace:     %s\n", result.Dir)
	fmt.Println()

	fmt.Println("Checkpoints:")
	fmt.Printf("  Completed:     %d\n", result.Completed)
	fmt.Printf("  Shards:        %d\n", result.Shards)
	fmt.Printf("  Errors:        %d\n", result.Errors)

	fmt.Println()
	fmt.Println("Merged artifacts:")
	if result.MergedAll {
		fmt.Printf("  Scored:        %d records\n", result.MergedScored)
	} else {
		fmt.Println("  Scored:        (not merged yet)")
	}
	if result.MergedRelevant {
		fmt.Println("  Relevant:      present")
	} else {
		fmt.Println("  Relevant:      (not merged yet)")
	}
}
