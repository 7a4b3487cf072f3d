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
	"runtime/debug"
	"sync"
	"time"
)

// Config controls a Runner.
type Config struct {
	// CheckpointDir holds the ledger, shard files, and errors artifact.
	CheckpointDir string

	// Workers is the bounded worker count per sub-batch (W >= 1).
	Workers int

	// SubBatch is the maximum sub-batch size (B >= 1). Sub-batches run
	// strictly sequentially, bounding in-flight work to at most B items.
	SubBatch int

	// CheckpointInterval triggers a flush once this many items have been
	// attempted since the last flush. The final remainder is always flushed.
	CheckpointInterval int

	// Retry configures the per-item retry executor.
	Retry RetryConfig

	// Qualify selects the qualifying subset written to the relevant shards.
	// Nil disables relevant-subset sharding.
	Qualify Predicate

	// Resume skips items whose IDs are already in the ledger. When false the
	// ledger is still updated, but no up-front filtering happens.
	Resume bool
}

func (c Config) validate() error {
	if c.CheckpointDir == "" {
		return fmt.Errorf("checkpoint dir is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.SubBatch < 1 {
		return fmt.Errorf("subbatch must be >= 1, got %d", c.SubBatch)
	}
	if c.CheckpointInterval < 1 {
		return fmt.Errorf("checkpoint interval must be >= 1, got %d", c.CheckpointInterval)
	}
	return nil
}

// RunResult summarizes a run.
type RunResult struct {
	// Total is the size of the input work list.
	Total int

	// Skipped is the number of items filtered out as already completed.
	Skipped int

	// Processed is the number of items attempted this run.
	Processed int

	// Succeeded is the number of items that produced a result.
	Succeeded int

	// Failed is the number of items recorded as ErrorRecords.
	Failed int

	// Qualifying is the number of successes passing the qualify predicate.
	Qualifying int

	// Shards is the number of shard files written this run.
	Shards int

	// Interrupted reports whether the run stopped on context cancellation.
	Interrupted bool

	// Duration is the total wall-clock run time.
	Duration time.Duration
}

// Runner is the concurrency scheduler: it partitions the filtered work list
// into sub-batches, fans each sub-batch out over a bounded worker pool, and
// feeds completed results through the checkpoint writer.
//
// The ledger and result buffer are mutated only by the coordinating
// goroutine; workers hand results back over a channel.
type Runner struct {
	cfg    Config
	exec   *Executor
	ledger *Ledger
	writer *ShardWriter
	logger *slog.Logger

	// OnProgress, when set, receives advisory snapshots after each completed
	// item. It runs on the coordinating goroutine and must not block.
	OnProgress func(Snapshot)
}

// NewRunner loads the ledger from cfg.CheckpointDir and builds a runner
// around proc.
func NewRunner(cfg Config, proc Processor, logger *slog.Logger) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("batch config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ledger, err := LoadLedger(cfg.CheckpointDir)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	return &Runner{
		cfg:    cfg,
		exec:   NewExecutor(proc, cfg.Retry, logger),
		ledger: ledger,
		writer: NewShardWriter(cfg.CheckpointDir, ledger, cfg.Qualify, logger),
		logger: logger,
	}, nil
}

// Ledger exposes the runner's ledger, mainly for status reporting.
func (r *Runner) Ledger() *Ledger { return r.ledger }

// Run processes items and returns a summary. Per-item failures are isolated
// and reported; only infrastructure failures (shard or ledger writes) return
// a non-nil error. Cancellation via ctx finishes the in-flight sub-batch,
// flushes whatever completed, and returns with Interrupted set.
func (r *Runner) Run(ctx context.Context, items []Item) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{Total: len(items)}

	// Completed-key filtering happens once, before any concurrency, so there
	// is no race between "check completed" and "mark completed".
	pending := items
	if r.cfg.Resume {
		pending = make([]Item, 0, len(items))
		for _, it := range items {
			if r.ledger.IsCompleted(it.ID) {
				res.Skipped++
				continue
			}
			pending = append(pending, it)
		}
	}

	r.logger.Info("batch.run.start",
		"total", res.Total,
		"skipped", res.Skipped,
		"pending", len(pending),
		"workers", r.cfg.Workers,
		"subbatch", r.cfg.SubBatch,
		"checkpoint_interval", r.cfg.CheckpointInterval,
	)

	tracker := NewTracker(len(pending))
	var (
		buffer             []Result
		errRecords         []ErrorRecord
		attemptedUnflushed int
	)

	flush := func() error {
		if len(buffer) > 0 {
			if err := r.writer.Flush(buffer); err != nil {
				return err
			}
			res.Shards++
			buffer = buffer[:0]
		}
		attemptedUnflushed = 0
		return nil
	}

	for chunkStart := 0; chunkStart < len(pending); chunkStart += r.cfg.SubBatch {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		chunkEnd := chunkStart + r.cfg.SubBatch
		if chunkEnd > len(pending) {
			chunkEnd = len(pending)
		}
		chunk := pending[chunkStart:chunkEnd]

		for out := range r.runChunk(ctx, chunk) {
			if out.Abandoned {
				continue
			}
			res.Processed++
			attemptedUnflushed++
			if out.OK() {
				res.Succeeded++
				buffer = append(buffer, out.Result)
				if r.cfg.Qualify != nil && r.cfg.Qualify(out.Result) {
					res.Qualifying++
				}
			} else {
				res.Failed++
				errRecords = append(errRecords, *out.Err)
			}
			recordItemDone(out.OK())
			if r.OnProgress != nil {
				r.OnProgress(tracker.Observe(res.Processed))
			}
		}

		if attemptedUnflushed >= r.cfg.CheckpointInterval {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	// Unconditional final flush of the remainder, also on interrupt.
	if err := flush(); err != nil {
		return nil, err
	}

	if err := r.writer.WriteErrors(errRecords); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	r.logger.Info("batch.run.complete",
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"qualifying", res.Qualifying,
		"shards", res.Shards,
		"interrupted", res.Interrupted,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}

// runChunk fans chunk out over a pool of Workers goroutines and returns the
// channel of outcomes. The pool is created and torn down per sub-batch to
// bound peak concurrency across a very long work list.
func (r *Runner) runChunk(ctx context.Context, chunk []Item) <-chan Outcome {
	jobs := make(chan int, len(chunk))
	outcomes := make(chan Outcome, len(chunk))

	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				outcomes <- r.executeGuarded(ctx, chunk[i])
			}
		}()
	}

	for i := range chunk {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

// executeGuarded shields the scheduler from collaborator panics, recording
// them as scheduler-level ErrorRecords instead of crashing the run.
func (r *Runner) executeGuarded(ctx context.Context, item Item) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("batch.scheduler.panic", "id", item.ID, "panic", rec)
			out = Outcome{Err: &ErrorRecord{
				ID:      item.ID,
				Kind:    ErrorKindScheduler,
				Message: fmt.Sprintf("panic: %v", rec),
				Trace:   string(debug.Stack()),
			}}
		}
	}()
	return r.exec.Execute(ctx, item)
}
