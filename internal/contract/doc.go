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

// Package contract provides validation constants and guardrails for harvest.
//
// This internal package contains the size limits the loader enforces before a
// run starts, so a malformed or oversized input fails fast instead of
// exhausting memory mid-run.
//
// # Input Size Limits
//
// Harvest enforces a soft limit on input file size:
//
//	// Default limit is 256 MiB
//	limit := contract.SoftLimitBytes()
//
//	// Validate before loading the whole file
//	result := contract.ValidateInputSize(fileSize)
//	if !result.OK {
//	    log.Printf("Validation failed: %s", result.Message)
//	}
//
// # Configuration via Environment
//
// The soft limit can be adjusted via the HARVEST_SOFT_LIMIT_BYTES environment
// variable:
//
//	export HARVEST_SOFT_LIMIT_BYTES=67108864  # 64 MiB
//
// If the environment variable is not set or invalid, the default limit
// of 256 MiB (DefaultSoftLimitBytes) is used.
//
// # Constants
//
// The package exports these constants:
//
//   - DefaultSoftLimitBytes: Baseline input soft limit (256 MiB)
//   - IdentityKeyMaxBytes: Maximum length for identity keys (128 bytes)
package contract
