// Copyright 2025 Graphmill
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

// GlobalFlags holds flags shared by every subcommand, parsed in main before
// dispatch.
type GlobalFlags struct {
	// Quiet suppresses progress bars and informational output.
	// Auto-set when JSON is requested.
	Quiet bool

	// JSON switches machine-readable output on for commands that support it.
	JSON bool

	// NoColor disables ANSI colors. NO_COLOR in the environment has the
	// same effect.
	NoColor bool

	// Verbose raises log verbosity (0 = info, 1+ = debug).
	Verbose int
}
