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

package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig controls per-item retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int

	// BackoffBase is the sleep before the first retry.
	BackoffBase time.Duration

	// MaxBackoff caps the computed backoff.
	MaxBackoff time.Duration

	// Multiplier grows the backoff between attempts.
	Multiplier float64
}

// DefaultRetryConfig matches the harvest processors' production settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		BackoffBase: time.Second,
		MaxBackoff:  30 * time.Second,
		Multiplier:  2.0,
	}
}

// sanitize applies sanity defaults to avoid zero values causing busy loops.
func (c RetryConfig) sanitize() RetryConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Multiplier <= 1.0 {
		c.Multiplier = 2.0
	}
	return c
}

// Executor wraps a Processor with bounded retries and exponential backoff.
// It translates collaborator errors into ErrorRecords and never lets an item
// failure escape past its own boundary.
type Executor struct {
	proc   Processor
	retry  RetryConfig
	logger *slog.Logger

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a retry executor around proc.
func NewExecutor(proc Processor, retry RetryConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		proc:   proc,
		retry:  retry.sanitize(),
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Execute attempts item up to MaxRetries+1 times, sleeping a jittered
// exponential backoff between attempts. On success the Outcome carries the
// Result; after exhausted retries it carries an ErrorRecord with the last
// error's message. A canceled context also produces an ErrorRecord: the
// item's key stays out of the ledger, so it is retried on the next run.
func (e *Executor) Execute(ctx context.Context, item Item) Outcome {
	var lastErr error

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			sleep := backoffWithJitter(e.retry.BackoffBase, attempt-1, e.retry.Multiplier, e.retry.MaxBackoff)
			recordRetry()
			e.logger.Warn("batch.item.retry",
				"id", item.ID,
				"attempt", attempt,
				"sleep_ms", sleep.Milliseconds(),
				"err", lastErr,
			)
			if err := e.sleep(ctx, sleep); err != nil {
				lastErr = err
				break
			}
		}

		result, err := e.proc.ProcessOne(ctx, item)
		if err == nil {
			result.ID = item.ID
			result.Index = item.Index
			return Outcome{Result: result}
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		e.logger.Debug("batch.item.abandoned", "id", item.ID, "err", lastErr)
		return Outcome{Abandoned: true}
	}

	e.logger.Error("batch.item.failed",
		"id", item.ID,
		"attempts", e.retry.MaxRetries+1,
		"err", lastErr,
	)
	return Outcome{Err: &ErrorRecord{
		ID:      item.ID,
		Kind:    ErrorKindItem,
		Message: lastErr.Error(),
		Trace:   fmt.Sprintf("%T", lastErr),
	}}
}

// backoffWithJitter returns exponential backoff with full jitter in [0, d].
func backoffWithJitter(base time.Duration, attempt int, mult float64, capDur time.Duration) time.Duration {
	exp := float64(base)
	for i := 0; i < attempt; i++ {
		exp *= mult
	}
	d := time.Duration(exp)
	if d > capDur {
		d = capDur
	}
	if d <= 0 {
		return base
	}
	return time.Duration(jitterInt63n(int64(d) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var (
	jitterMu  sync.Mutex
	jitterRNG = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func jitterInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return jitterRNG.Int63n(n)
}
