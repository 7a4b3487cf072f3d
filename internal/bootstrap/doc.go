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

// Package bootstrap manages harvest run workspaces.
//
// A workspace is a per-entity directory holding everything a run produces:
// the checkpoint ledger, shard files, the errors artifact, and the final
// merged artifacts. Workspaces live under a common base directory so that
// interrupted runs can be resumed and past runs can be inspected.
//
// # Workspace Layout
//
//	<base>/<entity>/
//	    checkpoints/
//	        completed.json
//	        checkpoint_0000-0002.json
//	        processing_errors.json
//	    all_<entity>_scored.json
//	    relevant_<entity>.json
//
// # Typical Workflow
//
//	// Create or reuse the workspace for an entity
//	ws, err := bootstrap.InitWorkspace(bootstrap.WorkspaceConfig{
//	    Entity: "films",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Checkpoints in: %s\n", ws.CheckpointDir)
//
//	// Later, open it read-only for status reporting
//	ws, err = bootstrap.OpenWorkspace(bootstrap.WorkspaceConfig{
//	    Entity: "films",
//	}, logger)
//
// # Idempotency
//
// InitWorkspace is idempotent: calling it on an existing workspace leaves
// prior checkpoints in place, which is exactly what a resumed run needs.
//
// # Base Directory Resolution
//
// The base directory is resolved in order: WorkspaceConfig.BaseDir, the
// HARVEST_DATA_DIR environment variable, then ~/.harvest/data.
package bootstrap
