// Package main is the examforge CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/cli"
	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/export"
	"github.com/hyperjump/examforge/internal/extract"
	"github.com/hyperjump/examforge/internal/generation"
	"github.com/hyperjump/examforge/internal/llm"
	"github.com/hyperjump/examforge/internal/merge"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/parser"
	"github.com/hyperjump/examforge/internal/pipeline"
	"github.com/hyperjump/examforge/internal/section"
	"github.com/hyperjump/examforge/internal/server"
	"github.com/hyperjump/examforge/internal/storage"
	"github.com/hyperjump/examforge/internal/usage"
	"github.com/hyperjump/examforge/internal/validator"
	"github.com/hyperjump/examforge/internal/watcher"
	"github.com/hyperjump/examforge/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/examforge/config.yaml"

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitError
	}
	command, rest := args[0], args[1:]
	switch command {
	case "run":
		return runPipeline(rest, stdout, stderr)
	case "merge":
		return runMerge(rest, stdout, stderr)
	case "status":
		return runStatus(rest, stdout, stderr)
	case "export":
		return runExport(rest, stdout, stderr)
	case "serve":
		return runServe(rest, stdout, stderr)
	case "search":
		return runSearch(rest, stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "examforge version %s\n", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return exitError
	}
}

// runOptions are the flags of "examforge run".
type runOptions struct {
	configPath string
	input      string
	output     string
	batchSize  int
	resume     bool
	noResume   bool
	dryRun     bool
	start      int
	end        int
	debug      bool
	format     string
	set        map[string]bool
}

func parseRunFlags(args []string, stderr io.Writer) (*runOptions, error) {
	o := &runOptions{set: map[string]bool{}}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", defaultConfigPath, "config file path")
	fs.StringVar(&o.input, "input", "", "source document (overrides input_path)")
	fs.StringVar(&o.output, "output", "", "output directory (overrides output_dir)")
	fs.IntVar(&o.batchSize, "batch-size", 0, "records per batch (overrides batch.size)")
	fs.BoolVar(&o.resume, "resume", true, "resume from the saved progress file")
	fs.BoolVar(&o.noResume, "no-resume", false, "start from the first record and ignore saved progress")
	fs.BoolVar(&o.dryRun, "dry-run", false, "parse and validate without calling the generation service or writing output")
	fs.IntVar(&o.start, "start-question", 0, "first question number to process (inclusive)")
	fs.IntVar(&o.end, "end-question", 0, "last question number to process (inclusive)")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.StringVar(&o.format, "format", "text", "summary format: text or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	if o.set["resume"] && o.set["no-resume"] && o.resume {
		return nil, errors.New("--resume and --no-resume are mutually exclusive")
	}
	if o.start > 0 && o.end > 0 && o.start > o.end {
		return nil, fmt.Errorf("--start-question %d is after --end-question %d", o.start, o.end)
	}
	return o, nil
}

// apply overrides cfg with the flags given on the command line.
func (o *runOptions) apply(cfg *config.Config) {
	if o.set["input"] {
		cfg.InputPath = o.input
	}
	if o.set["output"] {
		applyOutputDir(cfg, o.output)
	}
	if o.set["batch-size"] {
		cfg.Batch.Size = o.batchSize
	}
	cfg.Debug = cfg.Debug || o.debug
}

// resumeEnabled resolves --resume/--no-resume against the config file.
func (o *runOptions) resumeEnabled(cfg *config.Config) bool {
	switch {
	case o.noResume:
		return false
	case o.set["resume"]:
		return o.resume
	default:
		return cfg.Batch.ResumeOrDefault()
	}
}

// applyOutputDir points every output artifact at dir, including the dataset.
func applyOutputDir(cfg *config.Config, dir string) {
	cfg.OutputDir = dir
	cfg.OutputPath = filepath.Join(dir, "dataset.json")
}

func runPipeline(args []string, stdout, stderr io.Writer) int {
	opts, err := parseRunFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Invalid flags: %v\n", err)
		return exitError
	}
	format, err := cli.ParseFormat(opts.format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	cfg, resolvedConfigPath, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitError
	}
	opts.apply(cfg)
	if err := cfg.Validate(!opts.dryRun); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return exitError
	}
	patterns, err := cfg.Patterns.Compile()
	if err != nil {
		fmt.Fprintf(stderr, "Invalid patterns: %v\n", err)
		return exitError
	}

	layout := cfg.Layout()
	if err := os.MkdirAll(layout.LogsDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "Failed to create output directory: %v\n", err)
		return exitError
	}
	runID := uuid.NewString()
	logPath := filepath.Join(layout.LogsDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	logger, err := utils.NewLogger(cfg.Debug, logPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return exitError
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("input", cfg.InputPath),
		zap.String("output_dir", cfg.OutputDir),
		zap.String("model", cfg.Generation.Model),
		zap.Bool("dry_run", opts.dryRun))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := extract.Open(cfg.InputPath)
	if err != nil {
		logger.Error("failed to open input", zap.Error(err))
		fmt.Fprintf(stderr, "Failed to open input: %v\n", err)
		return exitError
	}
	ex, err := pipeline.ExtractRecords(src, section.NewLocator(patterns), parser.New(cfg.Parser.MinQuestionChars), logger)
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		fmt.Fprintf(stderr, "Extraction failed: %v\n", err)
		return exitError
	}
	records := pipeline.FilterRange(ex.Records, opts.start, opts.end)
	logger.Info("records selected",
		zap.Int("parsed", len(ex.Records)),
		zap.Int("selected", len(records)),
		zap.Int("start_question", opts.start),
		zap.Int("end_question", opts.end))

	trackerOpts := []usage.Option{usage.WithLogger(logger)}
	var ledger storage.Ledger
	if !opts.dryRun {
		l, err := storage.NewSQLiteLedger(layout.LedgerPath)
		if err != nil {
			logger.Error("failed to open usage ledger", zap.Error(err))
			fmt.Fprintf(stderr, "Failed to open usage ledger: %v\n", err)
			return exitError
		}
		defer l.Close()
		run := storage.Run{ID: runID, StartedAt: time.Now(), Input: cfg.InputPath, Model: cfg.Generation.Model}
		if err := l.StartRun(ctx, run); err != nil {
			logger.Error("failed to record run", zap.Error(err))
			fmt.Fprintf(stderr, "Failed to record run: %v\n", err)
			return exitError
		}
		ledger = l
		trackerOpts = append(trackerOpts, usage.WithLedger(l, runID))
	}
	tracker := usage.NewTracker(usage.Pricing{
		InputPerMillion:  cfg.Generation.InputCostPerMillion,
		OutputPerMillion: cfg.Generation.OutputCostPerMillion,
	}, cfg.Generation.CostWarnings, trackerOpts...)

	client, err := llm.New(cfg.Generation, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create generation client: %v\n", err)
		return exitError
	}
	gen := generation.New(client, generation.SettingsFrom(cfg),
		generation.WithRecorder(tracker),
		generation.WithLogger(logger))
	orch := pipeline.New(gen, validator.New(patterns, cfg.Validation), layout, pipeline.Options{
		BatchSize: cfg.Batch.Size,
		Resume:    opts.resumeEnabled(cfg),
		DryRun:    opts.dryRun,
		Strict:    cfg.Batch.StrictValidation,
	}, logger)

	sum, runErr := orch.Run(ctx, records)
	sum.RunID = runID
	report := cli.RunReport{Run: sum}

	status, code := "completed", exitOK
	switch {
	case runErr == nil:
	case errors.Is(runErr, pipeline.ErrInterrupted):
		status, code = "interrupted", exitInterrupted
		logger.Warn("run interrupted; committed progress is kept", zap.Int("batches", sum.Batches))
	default:
		status, code = "failed", exitError
		logger.Error("run failed", zap.Error(runErr))
		fmt.Fprintf(stderr, "Run failed: %v\n", runErr)
	}

	if !opts.dryRun && code != exitError {
		rep, err := mergeAndWrite(cfg, layout, logger)
		if err != nil {
			status, code = "failed", exitError
			logger.Error("merge failed", zap.Error(err))
			fmt.Fprintf(stderr, "Merge failed: %v\n", err)
		} else {
			report.Merge = rep
			report.DatasetPath = layout.DatasetPath
		}
	}
	if ledger != nil {
		if err := ledger.FinishRun(context.Background(), runID, status); err != nil {
			logger.Warn("failed to finish run in ledger", zap.Error(err))
		}
	}

	report.Usage = tracker.Stats()
	if err := cli.WriteSummary(stdout, report, format); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
	}
	return code
}

// mergeAndWrite merges the committed batches and replaces the dataset file.
func mergeAndWrite(cfg *config.Config, layout config.Layout, logger *zap.Logger) (*merge.Report, error) {
	m, err := merge.New(layout.BatchesDir, cfg.Exam, cfg.Generation.Model, logger)
	if err != nil {
		return nil, err
	}
	ds, rep, err := m.Merge()
	if err != nil {
		return nil, err
	}
	if err := m.WriteDataset(layout.DatasetPath, ds); err != nil {
		return nil, err
	}
	return &rep, nil
}

// commonFlags registers the flags shared by the maintenance subcommands.
func commonFlags(fs *flag.FlagSet) (configPath, output *string, debug *bool) {
	configPath = fs.String("config", defaultConfigPath, "config file path")
	output = fs.String("output", "", "output directory (overrides output_dir)")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, output, debug
}

// setup loads the config and builds a stderr-only logger for a maintenance subcommand.
func setup(configPath, output string, debug bool, stderr io.Writer) (*config.Config, *zap.Logger, bool) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return nil, nil, false
	}
	if output != "" {
		applyOutputDir(cfg, output)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return nil, nil, false
	}
	return cfg, logger, true
}

func runMerge(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath, output, debug := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}
	cfg, logger, ok := setup(*configPath, *output, *debug, stderr)
	if !ok {
		return exitError
	}
	defer logger.Sync()

	layout := cfg.Layout()
	rep, err := mergeAndWrite(cfg, layout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Merge failed: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "Merged %d questions from %d batches (%d duplicates dropped) into %s\n",
		rep.Questions, rep.Batches, rep.Duplicates, layout.DatasetPath)
	if rep.SchemaErr != nil {
		fmt.Fprintf(stdout, "Schema check failed: %v\n", rep.SchemaErr)
	}
	return exitOK
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath, output, debug := commonFlags(fs)
	formatFlag := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}
	format, err := cli.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	cfg, logger, ok := setup(*configPath, *output, *debug, stderr)
	if !ok {
		return exitError
	}
	defer logger.Sync()

	report, err := buildStatus(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Status failed: %v\n", err)
		return exitError
	}
	if err := cli.WriteStatus(stdout, *report, format); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return exitError
	}
	return exitOK
}

// buildStatus inspects an output directory. It never creates files.
func buildStatus(ctx context.Context, cfg *config.Config) (*cli.StatusReport, error) {
	layout := cfg.Layout()
	r := &cli.StatusReport{OutputDir: cfg.OutputDir}

	prog, found, err := checkpoint.NewProgressStore(layout.ProgressFile).Load()
	if err != nil {
		return nil, err
	}
	r.Progress, r.Resumable = prog, found
	if r.Batches, err = checkpoint.NewBatchStore(layout.BatchesDir).List(); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if r.Failures, err = checkpoint.NewFailureLog(layout.FailureLog).Read(); err != nil {
		return nil, fmt.Errorf("read failure log: %w", err)
	}
	if _, statErr := os.Stat(layout.LedgerPath); statErr == nil {
		ledger, err := storage.NewSQLiteLedger(layout.LedgerPath)
		if err != nil {
			return nil, err
		}
		defer ledger.Close()
		totals, err := ledger.AllTimeTotals(ctx)
		if err != nil {
			return nil, err
		}
		r.AllTime = &totals
		pricing := usage.Pricing{
			InputPerMillion:  cfg.Generation.InputCostPerMillion,
			OutputPerMillion: cfg.Generation.OutputCostPerMillion,
		}
		r.Cost = pricing.Cost(int(totals.InputTokens), int(totals.OutputTokens))
		if r.Recent, err = ledger.RecentRuns(ctx, 5); err != nil {
			return nil, err
		}
	}
	if r.DiskUsage, err = storage.OutputDiskUsage(layout); err != nil {
		return nil, err
	}
	return r, nil
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath, output, debug := commonFlags(fs)
	datasetPath := fs.String("dataset", "", "dataset to export (default: output_path; batches are merged in memory when it is missing)")
	xlsxPath := fs.String("xlsx", "", "workbook path (default: dataset path with .xlsx extension)")
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}
	cfg, logger, ok := setup(*configPath, *output, *debug, stderr)
	if !ok {
		return exitError
	}
	defer logger.Sync()

	layout := cfg.Layout()
	if *datasetPath == "" {
		*datasetPath = layout.DatasetPath
	}
	if *xlsxPath == "" {
		*xlsxPath = strings.TrimSuffix(*datasetPath, filepath.Ext(*datasetPath)) + ".xlsx"
	}
	ds, err := loadDataset(*datasetPath, cfg, layout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
		return exitError
	}
	if err := export.WriteXLSX(*xlsxPath, ds); err != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "Exported %d questions to %s\n", len(ds.Questions), *xlsxPath)
	return exitOK
}

// loadDataset reads the dataset at path, or merges the batches when it does not exist.
func loadDataset(path string, cfg *config.Config, layout config.Layout, logger *zap.Logger) (*models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var ds models.Dataset
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &ds, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	logger.Info("dataset not found; merging batches in memory", zap.String("path", path))
	m, err := merge.New(layout.BatchesDir, cfg.Exam, cfg.Generation.Model, logger)
	if err != nil {
		return nil, err
	}
	ds, _, err := m.Merge()
	return ds, err
}

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath, output, debug := commonFlags(fs)
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}
	cfg, logger, ok := setup(*configPath, *output, *debug, stderr)
	if !ok {
		return exitError
	}
	defer logger.Sync()
	if *port > 0 {
		cfg.Server.Port = *port
	}

	layout := cfg.Layout()
	m, err := merge.New(layout.BatchesDir, cfg.Exam, cfg.Generation.Model, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create merger: %v\n", err)
		return exitError
	}
	catalog := server.NewCatalog(layout, m, logger)
	defer catalog.Close()
	if err := catalog.Reload(); err != nil {
		fmt.Fprintf(stderr, "Failed to load output directory: %v\n", err)
		return exitError
	}

	var ledger storage.Ledger
	if _, statErr := os.Stat(layout.LedgerPath); statErr == nil {
		l, err := storage.NewSQLiteLedger(layout.LedgerPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open usage ledger: %v\n", err)
			return exitError
		}
		defer l.Close()
		ledger = l
	}

	watchOpts := []watcher.Option{}
	if cfg.Debug || *debug {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		[]string{cfg.OutputDir, layout.BatchesDir},
		watcher.ArtifactMatcher(layout),
		func() {
			if err := catalog.Reload(); err != nil {
				logger.Warn("catalog reload failed", zap.Error(err))
			}
		},
		watchOpts...,
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := watchSvc.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to start watcher: %v\n", err)
		return exitError
	}
	defer watchSvc.Stop()

	srv := server.NewServer(catalog, layout, ledger, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	fmt.Fprintf(stdout, "Serving %s on http://%s:%d\n", cfg.OutputDir, cfg.Server.Host, cfg.Server.Port)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return exitError
		}
		return exitOK
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	return exitOK
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

type searchResponse struct {
	Query   string                `json:"query"`
	Results []server.SearchResult `json:"results"`
}

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	serverURL := fs.String("server", "http://localhost:8080", "URL of a running examforge serve")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Int("fuzzy", 0, "edit distance for typo tolerance (0-2)")
	formatFlag := fs.String("format", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: examforge search [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(searchArgsReorder(args)); err != nil {
		return flagExit(err)
	}
	query := buildSearchQuery(fs.Args())
	if query == "" {
		fs.Usage()
		return exitError
	}
	format, err := cli.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	resp, err := searchViaHTTP(*serverURL, query, *limit, *fuzzy)
	if err != nil {
		fmt.Fprintf(stderr, "Search failed: %v\n", err)
		return exitError
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return exitError
		}
		return exitOK
	}
	fmt.Fprintf(stdout, "Found %d results for %q\n", len(resp.Results), query)
	for i, r := range resp.Results {
		fmt.Fprintf(stdout, "%2d. [%.4f] Q%d %s | %s | %s\n", i+1, r.Score, r.QuestionNumber, r.ID, r.Chapter, r.Title)
	}
	return exitOK
}

func searchViaHTTP(baseURL, query string, limit, fuzzy int) (*searchResponse, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if fuzzy > 0 {
		q.Set("fuzzy", strconv.Itoa(fuzzy))
	}
	u := strings.TrimRight(baseURL, "/") + "/api/v1/search?" + q.Encode()
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func flagExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	return exitError
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `examforge - turn exam papers into structured question datasets

Usage:
  examforge <command> [flags]

Commands:
  run       Extract questions, generate explanations in batches and write the dataset
  merge     Merge committed batches into the dataset file
  status    Show progress, failures, usage and disk usage of an output directory
  export    Write the dataset as an XLSX review workbook
  serve     Serve a read-only inspection API over an output directory
  search    Search questions through a running "examforge serve"
  version   Print the version
  help      Show this help

Run flags:
  --config PATH          config file (default %s, or ./config.yaml)
  --input PATH           source document (PDF, DOCX, ODT, RTF or text)
  --output DIR           output directory
  --batch-size N         records per committed batch
  --resume / --no-resume continue from saved progress (default) or start over
  --dry-run              parse and validate only
  --start-question N     first question number (inclusive)
  --end-question N       last question number (inclusive)
  --debug                debug logging

Exit codes: 0 success, 1 error, 130 interrupted.
`, defaultConfigPath)
}
