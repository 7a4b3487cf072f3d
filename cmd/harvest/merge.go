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
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/graphmill/harvest/internal/bootstrap"
	"github.com/graphmill/harvest/internal/errors"
	"github.com/graphmill/harvest/internal/output"
	"github.com/graphmill/harvest/internal/ui"
	"github.com/graphmill/harvest/pkg/batch"
)

// MergeReport is the merge outcome for JSON output.
type MergeReport struct {
	Entity            string `json:"entity"`
	ShardsRead        int    `json:"shards_read"`
	Results           int    `json:"results"`
	Qualifying        int    `json:"qualifying"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	OutputDir         string `json:"output_dir"`
}

// runMerge executes the 'merge' CLI command, re-running the merge/dedup
// stage over whatever checkpoint shards exist.
//
// The run command merges automatically; this standalone command exists for
// interrupted runs (merge after Ctrl-C without reprocessing), for --no-merge
// runs, and for recomputing the qualifying subset with a new threshold.
//
// Flags:
//   - --entity: Workspace name (required unless in config)
//   - --threshold: Minimum relevance score for the qualifying subset
//
// Examples:
//
//	harvest merge --entity films
//	harvest merge --entity films --threshold 0.8
func runMerge(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	entity := fs.String("entity", "", "Workspace name (e.g. films)")
	threshold := fs.Float64("threshold", -1, "Minimum relevance score for the qualifying subset")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: harvest merge [options]

Re-runs the merge/dedup stage over the existing checkpoint shards of a
workspace and rewrites the merged artifacts. Safe to run at any time,
including after an interrupted run.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Check the harvest.yaml syntax or pass --config",
			err,
		), globals.JSON)
	}
	if *entity != "" {
		cfg.Entity = *entity
	}
	if *threshold >= 0 {
		cfg.Run.Threshold = *threshold
	}
	if cfg.Entity == "" {
		errors.FatalError(errors.NewInputError(
			"No entity name",
			"Neither --entity nor the config file names the entity",
			"Pass --entity films or set entity in harvest.yaml",
		), globals.JSON)
	}

	logger := slog.Default()
	ui.InitColors(globals.NoColor)

	ws, err := bootstrap.OpenWorkspace(bootstrap.WorkspaceConfig{
		Entity:  cfg.Entity,
		BaseDir: cfg.BaseDir,
	}, logger)
	if err != nil {
		errors.FatalError(errors.NewNotFoundError(
			fmt.Sprintf("No workspace for entity %q", cfg.Entity),
			err.Error(),
			"Run 'harvest run' first, or check --entity and HARVEST_DATA_DIR",
		), globals.JSON)
	}

	merged, err := batch.Merge(ws.CheckpointDir, batch.ScoreAtLeast(cfg.Run.Threshold), logger)
	if err != nil {
		errors.FatalError(errors.NewCheckpointError(
			"Merge stage failed",
			err.Error(),
			"A shard file may be corrupt; inspect the checkpoint directory",
			err,
		), globals.JSON)
	}
	if err := batch.WriteMerged(ws.Dir, cfg.Entity, merged); err != nil {
		errors.FatalError(errors.NewCheckpointError(
			"Cannot write merged artifacts",
			err.Error(),
			"Check permissions on the workspace directory",
			err,
		), globals.JSON)
	}

	report := MergeReport{
		Entity:            cfg.Entity,
		ShardsRead:        merged.ShardsRead,
		Results:           len(merged.All),
		Qualifying:        len(merged.Qualifying),
		DuplicatesRemoved: merged.DuplicatesRemoved,
		OutputDir:         ws.Dir,
	}

	if globals.JSON {
		_ = output.JSON(report)
		return
	}

	ui.Header("Merge Complete")
	fmt.Printf("%s %s\n", ui.Label("Entity:"), report.Entity)
	fmt.Printf("%s %s\n", ui.Label("Shards read:"), ui.CountText(report.ShardsRead))
	fmt.Printf("%s %s\n", ui.Label("Unique results:"), ui.CountText(report.Results))
	fmt.Printf("%s %s\n", ui.Label("Qualifying:"), ui.CountText(report.Qualifying))
	if report.DuplicatesRemoved > 0 {
		fmt.Printf("%s %s\n", ui.Label("Duplicates removed:"), ui.CountText(report.DuplicatesRemoved))
	}
	ui.Successf("Artifacts written to %s", report.OutputDir)
}
