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

// Package testing provides fixture helpers for harvest tests.
//
// The helpers build predictable document lists and pre-populated checkpoint
// directories so command-level tests do not each reinvent JSON plumbing.
//
// # Quick Start
//
// Write an input file and run against it:
//
//	func TestMyFeature(t *testing.T) {
//	    path := testing.WriteDocumentList(t, testing.MakeDocuments(10))
//
//	    // path points at a JSON array of ten documents, doc-0..doc-9
//	}
//
// # Seeding Checkpoint State
//
// To simulate a previously interrupted run, seed shards and the ledger
// directly:
//
//	dir := t.TempDir()
//	testing.SeedShard(t, dir, []batch.Result{{ID: "doc-0", Index: 0, Score: 0.9}})
//	testing.SeedLedger(t, dir, "doc-0")
package testing
