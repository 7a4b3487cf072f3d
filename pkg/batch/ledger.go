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
	"os"
	"path/filepath"
	"sort"
)

// LedgerFileName is the ledger file within a checkpoint directory.
const LedgerFileName = "completed.json"

// Ledger is the persisted set of identity keys known to be completed.
// It is a "no need to redo" signal, not result storage: a key is only marked
// after its results have been durably written to a shard file.
//
// The ledger is loaded once at run start and mutated only by the coordinating
// goroutine between sub-batches; worker goroutines never touch it.
type Ledger struct {
	path      string
	completed map[string]struct{}
}

// ledgerFile is the persisted representation, fully rewritten on every save.
type ledgerFile struct {
	CompletedIDs []string `json:"completed_ids"`
}

// LoadLedger loads the ledger from dir, returning an empty ledger if no file
// exists yet.
func LoadLedger(dir string) (*Ledger, error) {
	l := &Ledger{
		path:      filepath.Join(dir, LedgerFileName),
		completed: make(map[string]struct{}),
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	for _, id := range lf.CompletedIDs {
		l.completed[id] = struct{}{}
	}

	return l, nil
}

// IsCompleted reports whether id has already been processed and persisted.
func (l *Ledger) IsCompleted(id string) bool {
	_, ok := l.completed[id]
	return ok
}

// Size returns the number of completed keys.
func (l *Ledger) Size() int { return len(l.completed) }

// MarkBatchCompleted records ids as completed and persists the full ledger.
// Re-marking already-completed keys is a no-op; the persisted set is always
// the union. The file is fully rewritten (temp + rename) on every save so a
// crash can never leave a truncated ledger behind.
func (l *Ledger) MarkBatchCompleted(ids []string) error {
	changed := false
	for _, id := range ids {
		if _, ok := l.completed[id]; !ok {
			l.completed[id] = struct{}{}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return l.save()
}

func (l *Ledger) save() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	lf := ledgerFile{CompletedIDs: make([]string, 0, len(l.completed))}
	for id := range l.completed {
		lf.CompletedIDs = append(lf.CompletedIDs, id)
	}
	sort.Strings(lf.CompletedIDs)

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write ledger temp: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename ledger: %w", err)
	}

	return nil
}
