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

package testing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/graphmill/harvest/pkg/batch"
)

// TestDocument is the fixture shape written by WriteDocumentList. It mirrors
// the loader's expected input: an "id" plus opaque content.
type TestDocument struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// MakeDocuments builds n predictable documents with IDs doc-0..doc-(n-1).
func MakeDocuments(n int) []TestDocument {
	docs := make([]TestDocument, n)
	for i := range docs {
		docs[i] = TestDocument{
			ID:    fmt.Sprintf("doc-%d", i),
			Title: fmt.Sprintf("Document %d", i),
			Text:  fmt.Sprintf("Body of document %d.", i),
		}
	}
	return docs
}

// WriteDocumentList writes docs as a JSON array into a temp file and returns
// its path. The file is cleaned up with the test.
func WriteDocumentList(t *testing.T, docs []TestDocument) string {
	t.Helper()

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		t.Fatalf("marshal documents: %v", err)
	}
	path := filepath.Join(t.TempDir(), "documents.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write document list: %v", err)
	}
	return path
}

// WriteDocumentLines writes docs in JSONL form and returns the path.
func WriteDocumentLines(t *testing.T, docs []TestDocument) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "documents.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create document lines: %v", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			t.Fatalf("encode document: %v", err)
		}
	}
	return path
}

// SeedShard writes a shard file with the given results into dir, named after
// the results' index range the same way the checkpoint writer names shards.
func SeedShard(t *testing.T, dir string, results []batch.Result) {
	t.Helper()

	if len(results) == 0 {
		t.Fatal("SeedShard needs at least one result")
	}
	lo, hi := results[0].Index, results[0].Index
	for _, r := range results[1:] {
		if r.Index < lo {
			lo = r.Index
		}
		if r.Index > hi {
			hi = r.Index
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		t.Fatalf("marshal shard: %v", err)
	}
	path := filepath.Join(dir, batch.ShardName(lo, hi))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write shard: %v", err)
	}
}

// SeedLedger writes a ledger into dir marking ids as completed.
func SeedLedger(t *testing.T, dir string, ids ...string) {
	t.Helper()

	ledger, err := batch.LoadLedger(dir)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if err := ledger.MarkBatchCompleted(ids); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

// ReadJSON decodes the JSON file at path into out, failing the test on any
// error.
func ReadJSON(t *testing.T, path string, out any) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
}
