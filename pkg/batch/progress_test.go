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
	"testing"
	"time"
)

func TestTracker_Observe(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := &Tracker{total: 10, start: base, now: func() time.Time {
		return base.Add(20 * time.Second)
	}}

	s := tr.Observe(4)
	if s.Completed != 4 || s.Total != 10 {
		t.Fatalf("counts = %d/%d, want 4/10", s.Completed, s.Total)
	}
	if s.Elapsed != 20*time.Second {
		t.Errorf("Elapsed = %v, want 20s", s.Elapsed)
	}
	if s.AvgPerItem != 5*time.Second {
		t.Errorf("AvgPerItem = %v, want 5s", s.AvgPerItem)
	}
	if s.ETA != 30*time.Second {
		t.Errorf("ETA = %v, want 30s", s.ETA)
	}
}

func TestTracker_ObserveZeroCompleted(t *testing.T) {
	base := time.Now()
	tr := &Tracker{total: 5, start: base, now: func() time.Time {
		return base.Add(time.Second)
	}}

	s := tr.Observe(0)
	if s.AvgPerItem != 0 || s.ETA != 0 {
		t.Errorf("zero completions should yield zero estimates, got avg=%v eta=%v", s.AvgPerItem, s.ETA)
	}
}

func TestTracker_ObserveDone(t *testing.T) {
	base := time.Now()
	tr := &Tracker{total: 3, start: base, now: func() time.Time {
		return base.Add(9 * time.Second)
	}}

	s := tr.Observe(3)
	if s.ETA != 0 {
		t.Errorf("ETA at completion = %v, want 0", s.ETA)
	}
	if s.AvgPerItem != 3*time.Second {
		t.Errorf("AvgPerItem = %v, want 3s", s.AvgPerItem)
	}
}
