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

package batch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Shard file naming. Bounds are zero-padded so lexicographic and numeric
// shard ordering coincide.
const (
	shardPrefix         = "checkpoint_"
	shardRelevantPrefix = "checkpoint_relevant_"

	// ErrorsFileName holds all ErrorRecords from a run.
	ErrorsFileName = "processing_errors.json"
)

// ShardName returns the shard filename for an inclusive index range.
func ShardName(start, end int) string {
	return fmt.Sprintf("%s%04d-%04d.json", shardPrefix, start, end)
}

// RelevantShardName returns the qualifying-subset shard filename for a range.
func RelevantShardName(start, end int) string {
	return fmt.Sprintf("%s%04d-%04d.json", shardRelevantPrefix, start, end)
}

// ShardWriter flushes accumulated results into range-labeled shard files and
// records the flushed identity keys in the ledger.
//
// Ordering is the atomicity boundary: the shard file is written before the
// ledger is updated. A crash between the two leaves the keys un-ledgered, so
// the items are reprocessed on resume and the merge stage's dedup absorbs the
// duplicate shard.
type ShardWriter struct {
	dir     string
	ledger  *Ledger
	qualify Predicate
	logger  *slog.Logger
}

// NewShardWriter creates a writer flushing into dir. qualify selects results
// for the parallel relevant-subset shards and may be nil to disable them.
func NewShardWriter(dir string, ledger *Ledger, qualify Predicate, logger *slog.Logger) *ShardWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShardWriter{
		dir:     dir,
		ledger:  ledger,
		qualify: qualify,
		logger:  logger,
	}
}

// Flush writes results as a new shard covering their inclusive index range,
// then marks the identity keys completed in the ledger. Shards are additive;
// an existing file for the same range is never rewritten in place.
// An empty results slice is a no-op.
func (w *ShardWriter) Flush(results []Result) error {
	if len(results) == 0 {
		return nil
	}

	start, end := results[0].Index, results[0].Index
	for _, r := range results[1:] {
		if r.Index < start {
			start = r.Index
		}
		if r.Index > end {
			end = r.Index
		}
	}

	flushStart := time.Now()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	path := filepath.Join(w.dir, ShardName(start, end))
	if err := writeJSONAtomic(path, results); err != nil {
		return fmt.Errorf("write shard %s: %w", ShardName(start, end), err)
	}

	relevant := 0
	if w.qualify != nil {
		subset := make([]Result, 0, len(results))
		for _, r := range results {
			if w.qualify(r) {
				subset = append(subset, r)
			}
		}
		relevant = len(subset)
		if len(subset) > 0 {
			relPath := filepath.Join(w.dir, RelevantShardName(start, end))
			if err := writeJSONAtomic(relPath, subset); err != nil {
				return fmt.Errorf("write relevant shard %s: %w", RelevantShardName(start, end), err)
			}
		}
	}

	// Ledger update strictly after the shard data is durable.
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	if err := w.ledger.MarkBatchCompleted(ids); err != nil {
		return fmt.Errorf("mark batch completed: %w", err)
	}

	recordFlush(len(results), time.Since(flushStart))
	w.logger.Info("batch.flush.complete",
		"shard", ShardName(start, end),
		"results", len(results),
		"relevant", relevant,
		"ledger_size", w.ledger.Size(),
	)

	return nil
}

// WriteErrors persists all error records for the run, fully rewriting the
// errors artifact. Always writes, so an error-free run leaves an empty array
// behind rather than a stale file.
func (w *ShardWriter) WriteErrors(errs []ErrorRecord) error {
	if errs == nil {
		errs = []ErrorRecord{}
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	path := filepath.Join(w.dir, ErrorsFileName)
	if err := writeJSONAtomic(path, errs); err != nil {
		return fmt.Errorf("write errors file: %w", err)
	}
	return nil
}

// writeJSONAtomic writes v as indented JSON via temp file + rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
