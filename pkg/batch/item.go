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
	"context"
	"encoding/json"
)

// Item is a single unit of work. Index is the item's global position in the
// source list (stable across runs); ID is the stable external identity key
// used for checkpointing, resume, and dedup.
type Item struct {
	Index   int             `json:"index"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result is the output of successfully processing one Item.
// Payload is opaque to the engine; Score feeds the qualifying predicate.
type Result struct {
	ID      string          `json:"id"`
	Index   int             `json:"index"`
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Error kinds recorded in ErrorRecord.Kind.
const (
	// ErrorKindItem marks a per-item processing failure after exhausted retries.
	ErrorKindItem = "item"

	// ErrorKindScheduler marks an unexpected failure while collecting a
	// worker's result, tagged distinctly for diagnosis.
	ErrorKindScheduler = "scheduler"
)

// ErrorRecord describes a permanently failed item. Failed items are never
// retried within the same run; they are reported in the errors artifact and,
// because their IDs stay out of the ledger, reprocessed on the next run.
type ErrorRecord struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

// Processor is the collaborator contract supplied per source type.
// ProcessOne must be idempotent-enough that reprocessing the same payload
// twice produces acceptable (not necessarily byte-identical) output.
type Processor interface {
	ProcessOne(ctx context.Context, item Item) (Result, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, item Item) (Result, error)

// ProcessOne calls f.
func (f ProcessorFunc) ProcessOne(ctx context.Context, item Item) (Result, error) {
	return f(ctx, item)
}

// Outcome is the tagged result of attempting one item: exactly one of Result
// or Err is meaningful. The executor translates collaborator errors into
// ErrorRecords so the scheduler never handles exceptions on expected paths.
type Outcome struct {
	Result Result
	Err    *ErrorRecord

	// Abandoned marks an item whose attempt was cut short by cancellation.
	// Its key stays out of the ledger so the next run picks it up again; it
	// is neither a success nor a reportable error.
	Abandoned bool
}

// OK reports whether the item succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Predicate selects the qualifying subset of results.
type Predicate func(Result) bool

// ScoreAtLeast returns a Predicate passing results with Score >= threshold.
func ScoreAtLeast(threshold float64) Predicate {
	return func(r Result) bool { return r.Score >= threshold }
}
