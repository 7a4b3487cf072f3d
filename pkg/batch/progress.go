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

import "time"

// Snapshot is an advisory progress observation. Snapshots never affect
// correctness and may be stale under high concurrency.
type Snapshot struct {
	Completed int
	Total     int
	Elapsed   time.Duration

	// AvgPerItem is elapsed / completed.
	AvgPerItem time.Duration

	// ETA is AvgPerItem * (Total - Completed).
	ETA time.Duration
}

// Tracker computes moving-average throughput and estimated time remaining
// from a monotonically increasing completed count and a wall-clock start.
type Tracker struct {
	total int
	start time.Time
	now   func() time.Time // swappable in tests
}

// NewTracker starts tracking progress toward total completions.
func NewTracker(total int) *Tracker {
	return &Tracker{
		total: total,
		start: time.Now(),
		now:   time.Now,
	}
}

// Observe returns the snapshot for the given completed count.
func (t *Tracker) Observe(completed int) Snapshot {
	s := Snapshot{
		Completed: completed,
		Total:     t.total,
		Elapsed:   t.now().Sub(t.start),
	}
	if completed > 0 {
		s.AvgPerItem = s.Elapsed / time.Duration(completed)
		s.ETA = s.AvgPerItem * time.Duration(t.total-completed)
	}
	return s
}
