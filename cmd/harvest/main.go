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
// Package main implements the harvest CLI, a checkpointed concurrent batch
// engine for document scoring and knowledge-graph enrichment.
//
// Usage:
//
//	harvest run --input docs.json --entity films    Process a document list
//	harvest merge --entity films                    Re-merge checkpoint shards
//	harvest status [--json]                         Show workspace status
package main

import (
	"flag"
	"fmt"
	"os"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// main parses global flags and dispatches to the command handlers.
//
// Global flags:
//   - --version: Display version information and exit
//   - --config: Path to harvest.yaml (default: ./harvest.yaml)
//   - --json: Machine-readable output (implies --quiet)
//   - -q/--quiet: Suppress progress bars and informational output
//   - --no-color: Disable ANSI colors
//
// Commands:
//   - run: Process a document list with checkpointing and resume
//   - merge: Re-run the merge/dedup stage over existing shards
//   - status: Show ledger size, shard count, and artifact presence
func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to harvest.yaml (default: ./harvest.yaml)")
		jsonOut     = flag.Bool("json", false, "Machine-readable JSON output (implies --quiet)")
		quiet       = flag.Bool("quiet", false, "Suppress progress bars and informational output")
		quietShort  = flag.Bool("q", false, "Shorthand for --quiet")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `harvest - checkpointed batch harvesting engine

harvest runs an LLM-backed extractor over an ordered document list with
bounded concurrency, periodic checkpointing, and crash-safe resume. An
interrupted run picks up where it stopped; completed work is never redone.

Usage:
  harvest <command> [options]

Commands:
  run      Process a document list (checkpointed, resumable)
  merge    Re-run the merge/dedup stage over existing checkpoint shards
  status   Show workspace status (ledger size, shards, artifacts)

Global Options:
  --config      Path to harvest.yaml
  --json        Machine-readable JSON output
  -q, --quiet   Suppress progress output
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  harvest run --input films.json --entity films
  harvest run --input films.json --entity films --workers 8 --threshold 0.7
  harvest run --input films.json --entity films --limit 100 --start 200
  harvest merge --entity films
  harvest status --entity films --json

Getting Started:
  1. Prepare a JSON array (or JSONL file) of documents with unique "id" fields
  2. Run the harvest:       harvest run --input docs.json --entity films
  3. Interrupt freely:      re-running resumes from the last checkpoint
  4. Inspect the results:   harvest status --entity films

Data Storage:
  Checkpoints and merged artifacts live in ~/.harvest/data/<entity>/

Environment Variables:
  HARVEST_DATA_DIR   Workspace base directory (default: ~/.harvest/data)
  OLLAMA_HOST        Ollama URL (default: http://localhost:11434)
  OPENAI_API_KEY     API key for the openai provider
  ANTHROPIC_API_KEY  API key for the anthropic provider

For detailed command help: harvest <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("harvest version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{
		Quiet:   *quiet || *quietShort || *jsonOut,
		JSON:    *jsonOut,
		NoColor: *noColor,
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		runRun(cmdArgs, *configPath, globals)
	case "merge":
		runMerge(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
