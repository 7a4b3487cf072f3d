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
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// MergeResult is the output of the merge/dedup stage.
type MergeResult struct {
	// All holds one record per identity key, deduplicated first-seen-wins in
	// shard filename order.
	All []Result

	// Qualifying is the subset of All passing the qualify predicate.
	Qualifying []Result

	// DuplicatesRemoved counts records dropped during dedup.
	DuplicatesRemoved int

	// ShardsRead is the number of shard files scanned.
	ShardsRead int
}

// Merge scans all shard files in dir, concatenates their results in filename
// order, and deduplicates by identity key using first-seen-wins. A duplicate
// key with a differing payload indicates a non-deterministic collaborator; it
// is logged as a warning and resolved by the tie-break, never treated as
// fatal.
//
// Merge operates purely on whatever shards exist on disk, so it can be re-run
// at any time, including after an interrupted run.
func Merge(dir string, qualify Predicate, logger *slog.Logger) (*MergeResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	paths, err := shardPaths(dir)
	if err != nil {
		return nil, err
	}

	// Shards are independent files; read them in parallel, then process in
	// filename order so first-seen-wins stays deterministic.
	shards := make([][]Result, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read shard %s: %w", filepath.Base(path), err)
			}
			var results []Result
			if err := json.Unmarshal(data, &results); err != nil {
				return fmt.Errorf("parse shard %s: %w", filepath.Base(path), err)
			}
			shards[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &MergeResult{ShardsRead: len(paths)}
	seen := make(map[string]int) // identity key -> position in merged.All
	for _, results := range shards {
		for _, r := range results {
			if at, dup := seen[r.ID]; dup {
				merged.DuplicatesRemoved++
				if !bytes.Equal(merged.All[at].Payload, r.Payload) {
					logger.Warn("batch.merge.duplicate_mismatch",
						"id", r.ID,
						"kept_index", merged.All[at].Index,
						"dropped_index", r.Index,
					)
				}
				continue
			}
			seen[r.ID] = len(merged.All)
			merged.All = append(merged.All, r)
		}
	}

	if qualify != nil {
		for _, r := range merged.All {
			if qualify(r) {
				merged.Qualifying = append(merged.Qualifying, r)
			}
		}
	}

	recordMerge(merged.DuplicatesRemoved, time.Since(start))
	logger.Info("batch.merge.complete",
		"shards", merged.ShardsRead,
		"results", len(merged.All),
		"qualifying", len(merged.Qualifying),
		"duplicates_removed", merged.DuplicatesRemoved,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return merged, nil
}

// WriteMerged writes the final artifacts for entity into dir, overwriting any
// prior artifacts: all_<entity>_scored.json and relevant_<entity>.json.
// Idempotent given identical input shards.
func WriteMerged(dir, entity string, merged *MergeResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	all := merged.All
	if all == nil {
		all = []Result{}
	}
	allPath := filepath.Join(dir, fmt.Sprintf("all_%s_scored.json", entity))
	if err := writeJSONAtomic(allPath, all); err != nil {
		return fmt.Errorf("write merged artifact: %w", err)
	}

	qualifying := merged.Qualifying
	if qualifying == nil {
		qualifying = []Result{}
	}
	relPath := filepath.Join(dir, fmt.Sprintf("relevant_%s.json", entity))
	if err := writeJSONAtomic(relPath, qualifying); err != nil {
		return fmt.Errorf("write qualifying artifact: %w", err)
	}

	return nil
}

// ShardFiles lists the full-result shard files in dir in merge order.
// Relevant-subset shards are excluded.
func ShardFiles(dir string) ([]string, error) {
	return shardPaths(dir)
}

// shardPaths lists full-result shard files in dir, sorted by filename.
// Relevant-subset shards are a read optimization, not merge input.
func shardPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, shardPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasPrefix(name, shardRelevantPrefix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
