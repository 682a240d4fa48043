// Package main implements the entry point for the semdedup batch job.
// Semdedup finds candidate duplicate entity pairs across two RDF-style
// knowledge graphs by fusing textual and structural similarity signals,
// then classifies each pair into a duplication category.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/dedup"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/graph/neo4jsource"
	"github.com/c360/semdedup/metric"
	"github.com/c360/semdedup/pkg/embedding"
	"github.com/c360/semdedup/pkg/graphembed"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semdedup"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Run failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadPipelineConfig(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := metric.NewRegistry()
	if cliCfg.MetricsPort > 0 {
		serveMetrics(registry, cliCfg.MetricsPort)
	}

	src, closeSrc, err := buildGraphSource(ctx, cliCfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	js, closeNATS, err := connectNATS(cliCfg)
	if err != nil {
		return err
	}
	defer closeNATS()

	embedder, err := buildEmbedder(ctx, cliCfg, js, logger)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	lookups, closeLookups, err := buildLookups(ctx, cfg, cliCfg, src, js)
	if err != nil {
		return err
	}
	defer closeLookups()

	pipeline, err := dedup.New(cfg, src, embedder, lookups, registry, logger)
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx, cliCfg.SourceID, cliCfg.ReferenceID)
	if err != nil {
		return err
	}

	if err := writeReport(report, cliCfg.OutputPath); err != nil {
		return err
	}

	return evaluateGold(report, cliCfg.GoldPath)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting semdedup (hybrid duplicate entity matching)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// loadPipelineConfig loads and validates the pipeline configuration.
// An empty path keeps the defaults.
func loadPipelineConfig(cliCfg *CLIConfig) (config.Config, error) {
	if cliCfg.ConfigPath == "" {
		cfg := config.DefaultConfig()
		return cfg, cfg.Validate()
	}
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildGraphSource opens the graph-access collaborator: two N-Triples
// files loaded into memory, or a Neo4j endpoint.
func buildGraphSource(ctx context.Context, cliCfg *CLIConfig) (graph.Source, func(), error) {
	if cliCfg.Neo4jURI != "" {
		src, err := neo4jsource.New(ctx, cliCfg.Neo4jURI, cliCfg.Neo4jUser, cliCfg.Neo4jPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to Neo4j: %w", err)
		}
		return src, func() { _ = src.Close(context.Background()) }, nil
	}

	mem := graph.NewMemorySource()
	for _, in := range []struct{ id, path string }{
		{cliCfg.SourceID, cliCfg.SourcePath},
		{cliCfg.ReferenceID, cliCfg.ReferencePath},
	} {
		warnings, err := graph.LoadNTriplesFile(mem, in.id, in.path)
		if err != nil {
			return nil, nil, fmt.Errorf("load graph %s: %w", in.id, err)
		}
		for _, w := range warnings {
			slog.Warn("Skipped triple", "graph", in.id, "reason", w)
		}
	}
	return mem, func() {}, nil
}

// connectNATS opens the JetStream context used for the embedding cache and
// KV lookups. Returns nil JetStream when no URL is configured.
func connectNATS(cliCfg *CLIConfig) (jetstream.JetStream, func(), error) {
	if cliCfg.NATSURL == "" {
		return nil, func() {}, nil
	}

	nc, err := nats.Connect(cliCfg.NATSURL, nats.Name(appName))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return js, nc.Close, nil
}

// buildEmbedder selects the sentence encoder: an OpenAI-compatible HTTP
// service when configured (with a NATS-backed cache when available),
// otherwise the deterministic lexical fallback.
func buildEmbedder(ctx context.Context, cliCfg *CLIConfig, js jetstream.JetStream, logger *slog.Logger) (embedding.Embedder, error) {
	if cliCfg.EmbedBaseURL == "" {
		slog.Info("Using lexical fallback encoder", "dimensions", cliCfg.Dimensions)
		return embedding.NewBM25Embedder(embedding.BM25Config{Dimensions: cliCfg.Dimensions}), nil
	}

	var cache embedding.Cache
	if js != nil {
		bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:  embedding.TextCacheBucket,
			Storage: jetstream.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("open embedding cache bucket: %w", err)
		}
		cache = embedding.NewNATSCache(bucket)
	}

	return embedding.NewHTTPEmbedder(embedding.HTTPConfig{
		BaseURL: cliCfg.EmbedBaseURL,
		Model:   cliCfg.EmbedModel,
		APIKey:  cliCfg.EmbedAPIKey,
		Timeout: 30 * time.Second,
		Cache:   cache,
		Logger:  logger,
	})
}

// buildLookups resolves the precomputed vector lookups for every enabled
// graph kind.
func buildLookups(ctx context.Context, cfg config.Config, cliCfg *CLIConfig,
	src graph.Source, js jetstream.JetStream) (map[embedding.Kind]embedding.Lookup, func(), error) {

	lookups := make(map[embedding.Kind]embedding.Lookup)
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	specs := []struct {
		kind   embedding.Kind
		value  string
		bucket string
	}{
		{embedding.KindStructural, cliCfg.Structural, embedding.StructuralLookupBucket},
		{embedding.KindRelational, cliCfg.Relational, embedding.RelationalLookupBucket},
	}
	for _, spec := range specs {
		if !cfg.KindEnabled(spec.kind) || spec.value == "" {
			continue
		}
		lookup, closer, err := buildLookup(ctx, cliCfg, src, js, spec.value, spec.bucket)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("build %s lookup: %w", spec.kind, err)
		}
		lookups[spec.kind] = lookup
		if closer != nil {
			closers = append(closers, closer)
		}
	}
	return lookups, closeAll, nil
}

func buildLookup(ctx context.Context, cliCfg *CLIConfig, src graph.Source,
	js jetstream.JetStream, value, bucketName string) (embedding.Lookup, func(), error) {

	switch {
	case value == lookupTrainWalk || value == lookupTrainProximity:
		return trainLookup(ctx, cliCfg, src, value)

	case value == lookupNATS:
		bucket, err := js.KeyValue(ctx, bucketName)
		if err != nil {
			return nil, nil, fmt.Errorf("open bucket %s: %w", bucketName, err)
		}
		return embedding.NewNATSLookup(bucket, cliCfg.Dimensions), nil, nil

	case strings.HasSuffix(value, ".json"):
		lookup, err := embedding.LoadJSONLookup(value)
		return lookup, nil, err

	default: // .db / .sqlite, enforced by flag validation
		lookup, err := embedding.OpenSQLiteLookup(value, cliCfg.Dimensions)
		if err != nil {
			return nil, nil, err
		}
		return lookup, func() { _ = lookup.Close() }, nil
	}
}

// trainLookup trains a structural lookup from the input graphs themselves,
// for runs without an offline embedding job.
func trainLookup(ctx context.Context, cliCfg *CLIConfig, src graph.Source, mode string) (embedding.Lookup, func(), error) {
	started := time.Now()
	adj, err := graphembed.BuildAdjacency(ctx, src, cliCfg.SourceID, cliCfg.ReferenceID)
	if err != nil {
		return nil, nil, fmt.Errorf("build adjacency: %w", err)
	}

	var lookup *embedding.MemoryLookup
	if mode == lookupTrainWalk {
		walkCfg := graphembed.DefaultWalkConfig()
		walkCfg.Dimensions = cliCfg.Dimensions
		lookup, err = graphembed.TrainRandomWalk(ctx, adj, walkCfg)
	} else {
		proxCfg := graphembed.DefaultProximityConfig()
		proxCfg.Dimensions = cliCfg.Dimensions
		lookup, err = graphembed.TrainProximity(ctx, adj, proxCfg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("train %s: %w", mode, err)
	}

	slog.Info("Trained structural lookup",
		"mode", mode,
		"nodes", len(adj.Nodes()),
		"vectors", lookup.Len(),
		"duration", time.Since(started))
	return lookup, nil, nil
}

// writeReport serializes the match report as indented JSON.
func writeReport(report *dedup.Report, path string) error {
	out := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.Info("Report written",
		"path", path,
		"records", len(report.Records),
		"diagnostics", len(report.Diagnostics))
	return nil
}

// evaluateGold scores the report against a gold standard when one is given.
func evaluateGold(report *dedup.Report, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read gold standard: %w", err)
	}
	var gold []dedup.GoldPair
	if err := json.Unmarshal(data, &gold); err != nil {
		return fmt.Errorf("decode gold standard: %w", err)
	}

	eval := dedup.Evaluate(report.Records, gold)
	slog.Info("Gold standard evaluation",
		"gold_pairs", len(gold),
		"true_positives", eval.TruePositives,
		"false_positives", eval.FalsePositives,
		"false_negatives", eval.FalseNegatives,
		"precision", eval.Precision,
		"recall", eval.Recall,
		"f1", eval.F1)
	return nil
}

// serveMetrics exposes the Prometheus registry for scrape-based monitoring
// of long batch runs.
func serveMetrics(registry *metric.Registry, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", port)
		slog.Info("Serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Warn("Metrics server stopped", "error", err)
		}
	}()
}
