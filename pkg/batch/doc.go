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

// Package batch implements the checkpointed, concurrent batch-processing
// engine shared by all harvest source processors.
//
// The engine takes an ordered work list, filters out items already recorded
// in the checkpoint ledger, partitions the remainder into sub-batches, and
// runs each sub-batch on a bounded worker pool. Per-item failures are retried
// with exponential backoff and eventually recorded as error records; they
// never abort the run. Completed results are periodically flushed to
// range-labeled shard files, with the ledger updated strictly after the shard
// data is durable, so a crash at any point loses at most the unflushed
// in-memory buffer. The merge stage concatenates all shards and deduplicates
// by identity key to produce the final artifacts.
//
// The engine is generic over a Processor collaborator; it does not care what
// processing an item involves.
package batch
