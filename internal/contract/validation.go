// Copyright 2025 Graphmill
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit for input file size.
	DefaultSoftLimitBytes = 256 << 20 // 256 MiB

	// IdentityKeyMaxBytes is the maximum length for an identity key. Keys are
	// persisted into every ledger write, so unbounded keys bloat each flush.
	IdentityKeyMaxBytes = 128
)

// SoftLimitBytes returns the effective soft limit for input file size.
// Controlled via env HARVEST_SOFT_LIMIT_BYTES; falls back to DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("HARVEST_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateInputSize checks an input file size against the soft limit.
func ValidateInputSize(size int) *ValidationResult {
	if limit := SoftLimitBytes(); size > limit {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("input size %d exceeds soft limit %d (raise HARVEST_SOFT_LIMIT_BYTES to override)", size, limit),
		}
	}
	return &ValidationResult{OK: true}
}

// ValidateIdentityKey checks an identity key against the length limit.
func ValidateIdentityKey(id string) *ValidationResult {
	if len(id) > IdentityKeyMaxBytes {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("identity key %.32q... is %d bytes, limit %d", id, len(id), IdentityKeyMaxBytes),
		}
	}
	return &ValidationResult{OK: true}
}
