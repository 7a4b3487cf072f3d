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

package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitWorkspace(t *testing.T) {
	base := t.TempDir()

	ws, err := InitWorkspace(WorkspaceConfig{Entity: "films", BaseDir: base}, nil)
	if err != nil {
		t.Fatalf("InitWorkspace error = %v", err)
	}
	if ws.CheckpointDir != filepath.Join(base, "films", CheckpointSubdir) {
		t.Errorf("CheckpointDir = %s", ws.CheckpointDir)
	}
	if _, err := os.Stat(ws.CheckpointDir); err != nil {
		t.Errorf("checkpoint dir not created: %v", err)
	}

	// Idempotent: existing checkpoints survive a second init.
	marker := filepath.Join(ws.CheckpointDir, "completed.json")
	if err := os.WriteFile(marker, []byte(`{"completed_ids":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := InitWorkspace(WorkspaceConfig{Entity: "films", BaseDir: base}, nil); err != nil {
		t.Fatalf("second InitWorkspace error = %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("prior checkpoint lost on re-init: %v", err)
	}
}

func TestInitWorkspace_Validation(t *testing.T) {
	if _, err := InitWorkspace(WorkspaceConfig{BaseDir: t.TempDir()}, nil); err == nil {
		t.Error("expected error for empty entity")
	}
	if _, err := InitWorkspace(WorkspaceConfig{Entity: "a/b", BaseDir: t.TempDir()}, nil); err == nil {
		t.Error("expected error for entity with path separator")
	}
}

func TestOpenWorkspace_Missing(t *testing.T) {
	_, err := OpenWorkspace(WorkspaceConfig{Entity: "nope", BaseDir: t.TempDir()}, nil)
	if err == nil {
		t.Fatal("expected error for missing workspace")
	}
}

func TestListWorkspaces(t *testing.T) {
	base := t.TempDir()

	entities, err := ListWorkspaces(base)
	if err != nil {
		t.Fatalf("ListWorkspaces error = %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected no workspaces, got %v", entities)
	}

	for _, e := range []string{"films", "papers"} {
		if _, err := InitWorkspace(WorkspaceConfig{Entity: e, BaseDir: base}, nil); err != nil {
			t.Fatal(err)
		}
	}

	entities, err = ListWorkspaces(base)
	if err != nil {
		t.Fatalf("ListWorkspaces error = %v", err)
	}
	if len(entities) != 2 {
		t.Errorf("entities = %v, want 2", entities)
	}

	// Missing base dir is not an error.
	entities, err = ListWorkspaces(filepath.Join(base, "never"))
	if err != nil || entities != nil {
		t.Errorf("missing base dir: entities = %v, err = %v", entities, err)
	}
}
