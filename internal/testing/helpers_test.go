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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmill/harvest/pkg/batch"
)

func TestMakeDocuments(t *testing.T) {
	docs := MakeDocuments(3)
	require.Len(t, docs, 3)
	assert.Equal(t, "doc-0", docs[0].ID)
	assert.Equal(t, "doc-2", docs[2].ID)
}

func TestWriteDocumentList(t *testing.T) {
	path := WriteDocumentList(t, MakeDocuments(2))

	var docs []TestDocument
	ReadJSON(t, path, &docs)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[1].ID)
}

func TestWriteDocumentLines(t *testing.T) {
	path := WriteDocumentLines(t, MakeDocuments(2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestSeedShardAndLedger(t *testing.T) {
	dir := t.TempDir()

	SeedShard(t, dir, []batch.Result{
		{ID: "doc-0", Index: 0, Score: 0.9},
		{ID: "doc-1", Index: 1, Score: 0.2},
	})
	SeedLedger(t, dir, "doc-0", "doc-1")

	_, err := os.Stat(filepath.Join(dir, batch.ShardName(0, 1)))
	require.NoError(t, err, "shard should exist under the writer's naming scheme")

	ledger, err := batch.LoadLedger(dir)
	require.NoError(t, err)
	assert.True(t, ledger.IsCompleted("doc-0"))
	assert.True(t, ledger.IsCompleted("doc-1"))

	merged, err := batch.Merge(dir, nil, nil)
	require.NoError(t, err)
	assert.Len(t, merged.All, 2)
}
