// Copyright 2025 Graphmill
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/graphmill/harvest/internal/bootstrap"
	"github.com/graphmill/harvest/internal/errors"
	"github.com/graphmill/harvest/internal/ui"
	"github.com/graphmill/harvest/pkg/batch"
	"github.com/graphmill/harvest/pkg/extract"
	"github.com/graphmill/harvest/pkg/source"
)

// runRun executes the 'run' CLI command, processing a document list through
// the checkpointed batch engine.
//
// Items already recorded in the workspace ledger are skipped, so interrupting
// and re-running the same command resumes where the last run stopped. The
// command exits 0 even when individual items failed permanently; per-item
// errors land in processing_errors.json. Only infrastructure failures
// (checkpoint I/O, bad input) exit non-zero.
//
// Flags:
//   - --input: Document list, JSON array or JSONL (required unless in config)
//   - --entity: Workspace and artifact name (required unless in config)
//   - --subject: Subject steering the extractor's relevance scoring
//   - --provider: LLM backend (ollama, openai, anthropic, mock)
//   - --model: Chat model name
//   - --start, --limit: Window into the document list
//   - --workers, --subbatch, --checkpoint: Engine tuning
//   - --threshold: Minimum relevance score for the qualifying subset
//   - --no-resume: Reprocess items already in the ledger
//   - --no-merge: Skip the merge stage after the run
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	harvest run --input films.json --entity films
//	harvest run --input films.json --entity films --workers 8 --checkpoint 50
//	harvest run --input films.json --entity films --limit 100 --start 200
func runRun(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	input := fs.String("input", "", "Document list (JSON array or JSONL)")
	entity := fs.String("entity", "", "Workspace and artifact name (e.g. films)")
	subject := fs.String("subject", "", "Subject for relevance scoring")
	provider := fs.String("provider", "", "LLM provider (ollama, openai, anthropic, mock)")
	model := fs.String("model", "", "Chat model name")
	start := fs.Int("start", 0, "Skip this many documents from the front of the list")
	limit := fs.Int("limit", 0, "Process at most this many documents (0 = all)")
	workers := fs.Int("workers", 0, "Bounded worker count per sub-batch")
	subbatch := fs.Int("subbatch", 0, "Maximum sub-batch size")
	checkpoint := fs.Int("checkpoint", 0, "Checkpoint after this many attempted items")
	threshold := fs.Float64("threshold", 0, "Minimum relevance score for the qualifying subset")
	maxRetries := fs.Int("max-retries", 0, "Additional attempts per failing item")
	noResume := fs.Bool("no-resume", false, "Reprocess items already recorded as completed")
	noMerge := fs.Bool("no-merge", false, "Skip the merge/dedup stage after the run")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: harvest run [options]

Description:
  Run the extractor over a document list with bounded concurrency and
  periodic checkpointing. This command:
  1. Loads the document list and skips already-completed items.
  2. Processes sub-batches over a bounded worker pool with per-item retry.
  3. Writes checkpoint shards and the completed-IDs ledger as it goes.
  4. Merges all shards into the final scored artifacts.

  Interrupting with Ctrl-C is safe: completed work is flushed and the next
  run resumes from the ledger.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  harvest run --input films.json --entity films
  harvest run --input films.json --entity films --provider mock --threshold 0.7
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Check the harvest.yaml syntax or pass --config",
			err,
		), globals.JSON)
	}

	// Flag overrides; only explicitly set flags win over harvest.yaml.
	if fs.Changed("input") {
		cfg.Input = *input
	}
	if fs.Changed("entity") {
		cfg.Entity = *entity
	}
	if fs.Changed("subject") {
		cfg.Subject = *subject
	}
	if fs.Changed("provider") {
		cfg.Provider.Type = *provider
	}
	if fs.Changed("model") {
		cfg.Provider.Model = *model
	}
	if fs.Changed("workers") {
		cfg.Run.Workers = *workers
	}
	if fs.Changed("subbatch") {
		cfg.Run.SubBatch = *subbatch
	}
	if fs.Changed("checkpoint") {
		cfg.Run.CheckpointInterval = *checkpoint
	}
	if fs.Changed("threshold") {
		cfg.Run.Threshold = *threshold
	}
	if fs.Changed("max-retries") {
		cfg.Run.MaxRetries = *maxRetries
	}

	if cfg.Input == "" {
		errors.FatalError(errors.NewInputError(
			"No input document list",
			"Neither --input nor the config file names a document list",
			"Pass --input docs.json or set input in harvest.yaml",
		), globals.JSON)
	}
	if cfg.Entity == "" {
		errors.FatalError(errors.NewInputError(
			"No entity name",
			"Neither --entity nor the config file names the entity",
			"Pass --entity films or set entity in harvest.yaml",
		), globals.JSON)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Start Prometheus metrics endpoint (optional)
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	ui.InitColors(globals.NoColor)

	opts := runOptions{
		Start:    *start,
		Limit:    *limit,
		Resume:   !*noResume,
		Merge:    !*noMerge,
		Progress: NewProgressConfig(globals),
	}

	summary, err := executeHarvest(ctx, logger, cfg, opts)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	if !globals.Quiet {
		printRunSummary(cfg, summary)
	}
}

// runOptions holds the per-invocation settings that do not live in the
// config file.
type runOptions struct {
	Start    int
	Limit    int
	Resume   bool
	Merge    bool
	Progress ProgressConfig
}

// runSummary aggregates the outcome of a run for reporting.
type runSummary struct {
	Workspace *bootstrap.WorkspaceInfo
	Run       *batch.RunResult
	Merged    *batch.MergeResult // nil when merge was skipped
}

// executeHarvest wires the pipeline together: load documents, init the
// workspace, build the extractor, run the engine, merge.
//
// Per-item failures are absorbed by the engine; the returned error means the
// run itself could not proceed (bad input, checkpoint I/O, provider config).
func executeHarvest(ctx context.Context, logger *slog.Logger, cfg *Config, opts runOptions) (*runSummary, error) {
	items, err := source.Load(cfg.Input)
	if err != nil {
		return nil, errors.NewInputError(
			"Cannot load document list",
			err.Error(),
			"Check that the input file is a JSON array or JSONL of objects with unique \"id\" fields",
		)
	}
	items = source.Window(items, opts.Start, opts.Limit)

	ws, err := bootstrap.InitWorkspace(bootstrap.WorkspaceConfig{
		Entity:  cfg.Entity,
		BaseDir: cfg.BaseDir,
	}, logger)
	if err != nil {
		return nil, errors.NewCheckpointError(
			"Cannot create workspace",
			err.Error(),
			"Check permissions on the data directory (HARVEST_DATA_DIR or ~/.harvest/data)",
			err,
		)
	}

	prov, err := extract.NewProvider(extract.ProviderConfig{
		Type:    cfg.Provider.Type,
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		Timeout: cfg.ProviderTimeout(),
	})
	if err != nil {
		return nil, errors.NewProviderError(
			"Cannot create LLM provider",
			err.Error(),
			"Supported providers: ollama, openai, anthropic, mock",
			err,
		)
	}

	proc := extract.NewExtractor(prov, cfg.Subject,
		extract.WithModel(cfg.Provider.Model),
		extract.WithLogger(logger),
	)

	qualify := batch.ScoreAtLeast(cfg.Run.Threshold)
	runner, err := batch.NewRunner(batch.Config{
		CheckpointDir:      ws.CheckpointDir,
		Workers:            cfg.Run.Workers,
		SubBatch:           cfg.Run.SubBatch,
		CheckpointInterval: cfg.Run.CheckpointInterval,
		Retry: batch.RetryConfig{
			MaxRetries: cfg.Run.MaxRetries,
		},
		Qualify: qualify,
		Resume:  opts.Resume,
	}, proc, logger)
	if err != nil {
		return nil, errors.NewCheckpointError(
			"Cannot start the batch engine",
			err.Error(),
			"Check the engine settings and the checkpoint directory",
			err,
		)
	}

	logger.Info("harvest.run.start",
		"entity", cfg.Entity,
		"input", cfg.Input,
		"documents", len(items),
		"provider", prov.Name(),
	)

	bar := NewProgressBar(opts.Progress, int64(len(items)), fmt.Sprintf("Harvesting %s", cfg.Entity))
	runner.OnProgress = progressObserver(bar)

	res, err := runner.Run(ctx, items)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return nil, errors.NewCheckpointError(
			"Harvest run aborted",
			err.Error(),
			"Completed work up to the last flush is checkpointed; fix the cause and re-run to resume",
			err,
		)
	}

	summary := &runSummary{Workspace: ws, Run: res}

	if opts.Merge {
		merged, err := batch.Merge(ws.CheckpointDir, qualify, logger)
		if err != nil {
			return nil, errors.NewCheckpointError(
				"Merge stage failed",
				err.Error(),
				"Shards are intact; fix the cause and run 'harvest merge' to retry",
				err,
			)
		}
		if err := batch.WriteMerged(ws.Dir, cfg.Entity, merged); err != nil {
			return nil, errors.NewCheckpointError(
				"Cannot write merged artifacts",
				err.Error(),
				"Check permissions on the workspace directory",
				err,
			)
		}
		summary.Merged = merged
	}

	logger.Info("harvest.run.complete",
		"entity", cfg.Entity,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"interrupted", res.Interrupted,
		"duration", res.Duration.Round(time.Millisecond).String(),
	)

	return summary, nil
}

// printRunSummary reports the run outcome to stdout in a human-readable form.
func printRunSummary(cfg *Config, s *runSummary) {
	fmt.Println()
	ui.Header("Harvest Run Complete")
	fmt.Printf("%s %s\n", ui.Label("Entity:"), cfg.Entity)
	fmt.Printf("%s %s\n", ui.Label("Workspace:"), s.Workspace.Dir)
	fmt.Println()

	r := s.Run
	fmt.Printf("%s %s of %s documents", ui.Label("Processed:"), ui.CountText(r.Processed), ui.CountText(r.Total))
	if r.Skipped > 0 {
		fmt.Printf(" %s", ui.DimText(fmt.Sprintf("(%d already completed)", r.Skipped)))
	}
	fmt.Println()
	fmt.Printf("%s %s\n", ui.Label("Succeeded:"), ui.CountText(r.Succeeded))
	fmt.Printf("%s %s\n", ui.Label("Qualifying:"), ui.CountText(r.Qualifying))
	fmt.Printf("%s %s\n", ui.Label("Shards written:"), ui.CountText(r.Shards))
	fmt.Printf("%s %s\n", ui.Label("Duration:"), r.Duration.Round(time.Millisecond).String())

	if r.Failed > 0 {
		ui.Warningf("%d document(s) failed permanently; see %s", r.Failed,
			batch.ErrorsFileName)
	}
	if r.Interrupted {
		ui.Warning("Run was interrupted; re-run the same command to resume")
	}

	if s.Merged != nil {
		fmt.Println()
		fmt.Printf("%s %s unique, %s qualifying", ui.Label("Merged:"),
			ui.CountText(len(s.Merged.All)), ui.CountText(len(s.Merged.Qualifying)))
		if s.Merged.DuplicatesRemoved > 0 {
			fmt.Printf(" %s", ui.DimText(fmt.Sprintf("(%d duplicates removed)", s.Merged.DuplicatesRemoved)))
		}
		fmt.Println()
		ui.Successf("Artifacts written to %s", s.Workspace.Dir)
	}
}
