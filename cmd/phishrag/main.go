// Package main is the phishrag CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/phishrag/internal/analyzer"
	"github.com/hyperjump/phishrag/internal/cli"
	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/internal/extract"
	"github.com/hyperjump/phishrag/internal/indexer"
	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/search"
	"github.com/hyperjump/phishrag/internal/server"
	"github.com/hyperjump/phishrag/internal/storage"
	"github.com/hyperjump/phishrag/internal/vector"
	"github.com/hyperjump/phishrag/internal/watcher"
	"github.com/hyperjump/phishrag/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/phishrag/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if neither file exists
// the built-in defaults are used. Returns the config and the path that was loaded
// ("" for built-in defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "analyze":
		runAnalyze()
	case "query":
		runQuery()
	case "reindex":
		runReindex()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("phishrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// fatalf prints to stderr and exits with status 1.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Serve immediately; queries return 503 until the first build lands.
	go func() {
		if err := components.Indexer.Start(ctx); err != nil {
			logger.Error("initial index build failed", zap.Error(err))
		}
	}()

	if cfg.Dataset.WatchOrDefault() {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher([]string{cfg.Dataset.Path}, func(path string) {
			logger.Info("dataset changed, rebuilding", zap.String("path", path))
			if _, err := components.Indexer.Rebuild(ctx); err != nil {
				logger.Warn("rebuild after dataset change failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	if cfg.Refresh.DailyAt != "" {
		hour, minute, _ := config.ParseClock(cfg.Refresh.DailyAt)
		go components.Indexer.RunDaily(ctx, hour, minute)
		logger.Info("daily rebuild scheduled", zap.String("at", cfg.Refresh.DailyAt))
	}

	srv := server.NewServer(
		components.Analyzer,
		components.Engine,
		components.Indexer,
		components.Vectors,
		components.Keywords,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
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

// joinArgs joins positional args with spaces so multi-word input works the same
// with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// readEmail returns the email to analyze: the contents of file when set, stdin
// when the only argument is "-", otherwise the joined arguments.
func readEmail(args []string, file string, stdin io.Reader, ex *extract.Extractor) (string, error) {
	switch {
	case file != "":
		return ex.Extract(file)
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(io.LimitReader(stdin, extract.MaxFileSize))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		return joinArgs(args), nil
	}
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = analyze locally)")
	file := fs.String("file", "", "read the email from a file (.eml, .txt, .html, .pdf, .docx)")
	session := fs.String("session", "", "session id recorded with the history entry")
	noHistory := fs.Bool("no-history", false, "do not record the analysis in history")
	topK := fs.Int("top-k", 0, "similar examples to consider (0 = analysis.top_k)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	email, err := readEmail(fs.Args(), *file, os.Stdin, extract.NewExtractor())
	if err != nil {
		fatalf("Failed to read email: %v", err)
	}
	if strings.TrimSpace(email) == "" {
		fmt.Println("Usage: phishrag analyze [flags] <email text | ->")
		fs.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL != "" {
		var analysis analyzer.Analysis
		if err := postJSON(*serverURL+"/api/v1/analyze", analyzeRequest(email, *session, *topK, *noHistory), &analysis); err != nil {
			fatalf("Analyze failed: %v", err)
		}
		if err := cli.WriteAnalysis(os.Stdout, &analysis, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}

	components, logger := mustLocalComponents(*configPath, true)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	analysis, err := components.Analyzer.AnalyzeTopK(ctx, email, *topK)
	if err != nil {
		fatalf("Analyze failed: %v", err)
	}
	if !*noHistory {
		rec := &models.HistoryRecord{
			SessionID: *session,
			Email:     email,
			Response:  analysis.Summary(),
			Risk:      string(analysis.Risk),
			Score:     analysis.Score,
			Label:     analysis.Label,
		}
		if err := components.Storage.SaveRecord(ctx, rec); err != nil {
			logger.Warn("failed to save history", zap.Error(err))
		}
	}
	if err := cli.WriteAnalysis(os.Stdout, analysis, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// analyzeRequest builds the body sent to POST /api/v1/analyze.
func analyzeRequest(email, session string, topK int, noHistory bool) models.AnalyzeRequest {
	return models.AnalyzeRequest{Email: email, SessionID: session, TopK: topK, NoHistory: noHistory}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = query locally)")
	limit := fs.Int("limit", 5, "number of results")
	minScore := fs.Float64("min-score", 0, "keep results scoring above this")
	kwEnabled := fs.Bool("keyword", true, "enable keyword search")
	semEnabled := fs.Bool("semantic", true, "enable semantic search")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	text := joinArgs(fs.Args())
	if text == "" {
		fmt.Println("Usage: phishrag query [flags] <text>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	query := &models.SimilarityQuery{
		Text:            text,
		Limit:           *limit,
		MinScore:        *minScore,
		KeywordEnabled:  *kwEnabled,
		SemanticEnabled: *semEnabled,
		FuzzyEnabled:    *fuzzyEnabled,
	}

	var response models.SimilarityResponse
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/query", query, &response); err != nil {
			fatalf("Query failed: %v", err)
		}
	} else {
		components, logger := mustLocalComponents(*configPath, true)
		defer logger.Sync()
		defer components.Close()
		res, err := components.Engine.Search(context.Background(), query)
		if err != nil {
			fatalf("Query failed: %v", err)
		}
		response = *res
	}
	if err := cli.WriteSimilarResults(os.Stdout, &response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = rebuild locally and refresh the snapshot)")
	_ = fs.Parse(os.Args[2:])

	var stats indexer.Stats
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/reindex", nil, &stats); err != nil {
			fatalf("Reindex failed: %v", err)
		}
	} else {
		components, logger := mustLocalComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		res, err := components.Indexer.Rebuild(context.Background())
		if err != nil {
			fatalf("Reindex failed: %v", err)
		}
		stats = *res
	}
	fmt.Printf("Indexed %d examples (%d dimensions) in %s\n", stats.Examples, stats.Dimensions, stats.Duration.Round(time.Millisecond))
	for _, label := range []vector.Label{vector.LabelPhishing, vector.LabelSuspicious, vector.LabelSafe} {
		fmt.Printf("  %-11s %d\n", label+":", stats.Labels[label])
	}
}

func runHistory() {
	if len(os.Args) < 3 {
		printHistoryUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	session := fs.String("session", "", "restrict to one session (empty = all)")
	limit := fs.Int("limit", 20, "records to list (0 = all)")
	offset := fs.Int("offset", 0, "records to skip")
	file := fs.String("file", "", "file for export/import (default stdout/stdin)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[3:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fatalf("Failed to open history: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	switch sub {
	case "list":
		format, err := cli.ParseOutputFormat(*outputFormat)
		if err != nil {
			fatalf("%v", err)
		}
		records, err := store.ListRecords(ctx, *session, *offset, *limit)
		if err != nil {
			fatalf("List failed: %v", err)
		}
		total, err := store.CountRecords(ctx, *session)
		if err != nil {
			fatalf("Count failed: %v", err)
		}
		if err := cli.WriteHistory(os.Stdout, records, int(total), format); err != nil {
			fatalf("Output failed: %v", err)
		}
	case "clear":
		removed, err := store.ClearRecords(ctx, *session)
		if err != nil {
			fatalf("Clear failed: %v", err)
		}
		fmt.Printf("Removed %d record(s)\n", removed)
	case "export":
		out := io.Writer(os.Stdout)
		if *file != "" {
			f, err := os.Create(*file)
			if err != nil {
				fatalf("Export failed: %v", err)
			}
			defer f.Close()
			out = f
		}
		n, err := storage.ExportJSON(ctx, store, out, *session)
		if err != nil {
			fatalf("Export failed: %v", err)
		}
		if *file != "" {
			fmt.Printf("Exported %d record(s) to %s\n", n, *file)
		}
	case "import":
		in := io.Reader(os.Stdin)
		if *file != "" {
			f, err := os.Open(*file)
			if err != nil {
				fatalf("Import failed: %v", err)
			}
			defer f.Close()
			in = f
		}
		n, err := storage.ImportJSON(ctx, store, in, *session)
		if err != nil {
			fatalf("Import failed after %d record(s): %v", n, err)
		}
		fmt.Printf("Imported %d record(s)\n", n)
	default:
		fmt.Printf("Unknown history subcommand: %s\n", sub)
		printHistoryUsage()
		os.Exit(1)
	}
}

func printHistoryUsage() {
	fmt.Println(`Usage: phishrag history <list|clear|export|import> [flags]
  phishrag history list [--session id] [--limit n] [--offset n] [--output json]
  phishrag history clear [--session id]
  phishrag history export [--session id] [--file history.json]
  phishrag history import [--session id] [--file history.json]`)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Ready            bool                   `json:"ready"`
	Examples         int                    `json:"examples"`
	Dimensions       int                    `json:"dimensions"`
	Labels           map[vector.Label]int   `json:"labels"`
	BuiltAt          string                 `json:"built_at,omitempty"`
	KeywordDocuments uint64                 `json:"keyword_documents,omitempty"`
	HistoryRecords   int64                  `json:"history_records"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = build the index locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		components, logger := mustLocalComponents(*configPath, true)
		defer logger.Sync()
		defer components.Close()
		status = localStatus(context.Background(), components)
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}
	fmt.Printf("ready:              %t\n", status.Ready)
	fmt.Printf("examples:           %d   # reference emails in the index\n", status.Examples)
	for _, label := range []vector.Label{vector.LabelPhishing, vector.LabelSuspicious, vector.LabelSafe} {
		fmt.Printf("  %-17s %d\n", strings.ToLower(string(label))+":", status.Labels[label])
	}
	fmt.Printf("dimensions:         %d\n", status.Dimensions)
	if status.BuiltAt != "" {
		fmt.Printf("built_at:           %s\n", status.BuiltAt)
	}
	fmt.Printf("history_records:    %d\n", status.HistoryRecords)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # history + snapshot + cache + dataset\n", *status.DiskUsageBytes)
	}
	if len(status.Config) > 0 {
		fmt.Println()
		fmt.Println("# configuration")
		for _, key := range []string{"embedding_provider", "embedding_dimensions", "top_k", "min_similarity",
			"keyword_weight", "semantic_weight", "dataset_path", "database_path", "snapshot_path", "refresh_daily_at"} {
			if v, ok := status.Config[key]; ok && v != "" {
				fmt.Printf("%-19s %v\n", key+":", v)
			}
		}
	}
}

func localStatus(ctx context.Context, c *Components) statusResponse {
	status := statusResponse{Labels: map[vector.Label]int{}}
	if idx := c.Vectors.Load(); idx != nil {
		status.Ready = true
		status.Examples = idx.Size()
		status.Dimensions = idx.Dimensions()
		status.Labels = idx.LabelCounts()
		status.BuiltAt = c.Vectors.BuiltAt().UTC().Format(time.RFC3339)
	}
	if kw := c.Keywords.Load(); kw != nil {
		status.KeywordDocuments, _ = kw.DocCount()
	}
	status.HistoryRecords, _ = c.Storage.CountRecords(ctx, "")
	cfg := c.Config
	paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath),
		cfg.Storage.SnapshotPath, cfg.Storage.EmbeddingCachePath, cfg.Dataset.Path)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	status.Config = map[string]interface{}{
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"dataset_path":         cfg.Dataset.Path,
		"database_path":        cfg.Storage.DatabasePath,
		"snapshot_path":        cfg.Storage.SnapshotPath,
	}
	return status
}

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func postJSON(target string, body, out interface{}) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	resp, err := httpClient.Post(target, "application/json", &payload)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(target string, out interface{}) error {
	resp, err := httpClient.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Config   *config.Config
	Storage  storage.Storage
	Embedder embedding.Embedder
	Vectors  *vector.Holder
	Keywords *keyword.Holder
	Engine   *search.Engine
	Analyzer *analyzer.Analyzer
	Indexer  *indexer.Indexer
}

// Close releases storage, the embedder and the current keyword index.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keywords != nil {
		if kw := c.Keywords.Load(); kw != nil {
			_ = kw.Close()
		}
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	embedder, err := embedding.New(cfg.Embedding, cfg.Storage.EmbeddingCachePath, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectors := &vector.Holder{}
	keywords := &keyword.Holder{}
	engine := search.NewEngine(embedder, vectors, keywords, cfg.Analysis)

	idxOpts := []indexer.IndexerOption{indexer.WithSnapshot(cfg.Storage.SnapshotPath)}
	anOpts := []analyzer.Option{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
		anOpts = append(anOpts, analyzer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(embedder, vectors, keywords, cfg.Dataset, idxOpts...)

	return &Components{
		Config:   cfg,
		Storage:  store,
		Embedder: embedder,
		Vectors:  vectors,
		Keywords: keywords,
		Engine:   engine,
		Analyzer: analyzer.New(engine, cfg.Analysis, anOpts...),
		Indexer:  idx,
	}, nil
}

// mustLocalComponents loads config and components for a one-shot command,
// building the reference index first when build is set.
func mustLocalComponents(configPath string, build bool) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	if build {
		if err := components.Indexer.Start(context.Background()); err != nil {
			components.Close()
			logger.Fatal("Failed to build reference index", zap.Error(err))
		}
	}
	return components, logger
}

func printUsage() {
	fmt.Println(`phishrag - Phishing email analysis against labelled reference examples

Usage:
  phishrag server [flags]                 Start the HTTP server
  phishrag analyze [flags] <text | ->     Analyze an email (text, stdin or --file)
  phishrag query [flags] <text>           List the most similar reference examples
  phishrag reindex [flags]                Rebuild the reference index from the dataset
  phishrag history <list|clear|export|import> [flags]
  phishrag status [flags]                 Show index and storage status
  phishrag version                        Show version
  phishrag help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/phishrag/config.yaml)
  --debug            Enable debug logging

Analyze Flags:
  --server string    Server URL; empty analyzes locally (default: "")
  --file string      Read the email from .eml, .txt, .html, .pdf or .docx
  --session string   Session id stored with the history entry
  --no-history       Do not record the analysis
  --top-k int        Similar examples to consider (default: analysis.top_k)
  --output string    Output format: text or json (default: text)

Query Flags:
  --limit int        Number of results (default: 5)
  --min-score float  Keep results scoring above this (default: 0)
  --keyword          Enable keyword search (default: true)
  --semantic         Enable semantic search (default: true)
  --fuzzy            Typo-tolerant keyword matching (default: false)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to build locally.
  --output string    Output format: text or json (default: text)

Examples:
  phishrag server
  phishrag analyze "Your account is suspended, click http://bad.example to verify"
  phishrag analyze --file suspicious.eml --output json
  cat message.txt | phishrag analyze -
  phishrag query --limit 3 gift card prize
  phishrag history export --file history.json
  phishrag status --output json`)
}
