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

// Package source loads ordered document lists and turns them into indexed,
// identity-keyed work items.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/graphmill/harvest/internal/contract"
	"github.com/graphmill/harvest/pkg/batch"
)

// Load reads a document list from path and returns one work item per record.
// Files ending in .jsonl (or .ndjson) are parsed line-by-line; anything else
// must be a single JSON array. Each record needs a non-empty "id" field,
// unique within the file; the payload is carried through opaque.
//
// Index is the record's position in the full file, assigned before any
// windowing, so it is stable across runs regardless of --start/--limit.
func Load(path string) ([]batch.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if check := contract.ValidateInputSize(len(data)); !check.OK {
		return nil, fmt.Errorf("%s: %s", path, check.Message)
	}

	var records []json.RawMessage
	if isLines(path) {
		records, err = parseLines(data)
	} else {
		records, err = parseArray(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	items := make([]batch.Item, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, raw := range records {
		var header struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, fmt.Errorf("%s: record %d is not an object: %w", path, i, err)
		}
		if header.ID == "" {
			return nil, fmt.Errorf("%s: record %d has no id", path, i)
		}
		if check := contract.ValidateIdentityKey(header.ID); !check.OK {
			return nil, fmt.Errorf("%s: record %d: %s", path, i, check.Message)
		}
		if prev, dup := seen[header.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate id %q (records %d and %d)", path, header.ID, prev, i)
		}
		seen[header.ID] = i

		items = append(items, batch.Item{Index: i, ID: header.ID, Payload: raw})
	}
	return items, nil
}

// Window narrows items to [start, start+limit) by list position. A zero or
// negative limit means no limit. Indices and identity keys are untouched.
func Window(items []batch.Item, start, limit int) []batch.Item {
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return nil
	}
	items = items[start:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func isLines(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".jsonl") || strings.HasSuffix(lower, ".ndjson")
}

func parseArray(data []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	return records, nil
}

func parseLines(data []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", lineNo)
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return records, nil
}
