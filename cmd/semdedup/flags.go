package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Lookup source modes for the -structural and -relational flags. A file
// path selects the JSON or sqlite-vec store by extension.
const (
	lookupTrainWalk      = "train-walk"
	lookupTrainProximity = "train-proximity"
	lookupNATS           = "nats"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath string

	// Graph inputs: either two N-Triples files or a Neo4j endpoint.
	SourcePath    string
	ReferencePath string
	SourceID      string
	ReferenceID   string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Embedding collaborators.
	EmbedBaseURL string
	EmbedModel   string
	EmbedAPIKey  string
	NATSURL      string
	Structural   string
	Relational   string
	Dimensions   int

	OutputPath  string
	GoldPath    string
	MetricsPort int

	LogLevel    string
	LogFormat   string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SEMDEDUP_CONFIG", ""),
		"Path to pipeline configuration file, empty for defaults (env: SEMDEDUP_CONFIG)")

	flag.StringVar(&cfg.SourcePath, "source",
		getEnv("SEMDEDUP_SOURCE", ""),
		"Path to the source graph N-Triples file (env: SEMDEDUP_SOURCE)")

	flag.StringVar(&cfg.ReferencePath, "reference",
		getEnv("SEMDEDUP_REFERENCE", ""),
		"Path to the reference graph N-Triples file (env: SEMDEDUP_REFERENCE)")

	flag.StringVar(&cfg.SourceID, "source-id", "source",
		"Graph identifier for the source graph")

	flag.StringVar(&cfg.ReferenceID, "reference-id", "reference",
		"Graph identifier for the reference graph")

	flag.StringVar(&cfg.Neo4jURI, "neo4j-uri",
		getEnv("SEMDEDUP_NEO4J_URI", ""),
		"Neo4j bolt URI; replaces file inputs when set (env: SEMDEDUP_NEO4J_URI)")

	flag.StringVar(&cfg.Neo4jUser, "neo4j-user",
		getEnv("SEMDEDUP_NEO4J_USER", "neo4j"),
		"Neo4j username (env: SEMDEDUP_NEO4J_USER)")

	flag.StringVar(&cfg.Neo4jPassword, "neo4j-password",
		getEnv("SEMDEDUP_NEO4J_PASSWORD", ""),
		"Neo4j password (env: SEMDEDUP_NEO4J_PASSWORD)")

	flag.StringVar(&cfg.EmbedBaseURL, "embed-url",
		getEnv("SEMDEDUP_EMBED_URL", ""),
		"OpenAI-compatible embedding service URL; empty selects the lexical fallback encoder (env: SEMDEDUP_EMBED_URL)")

	flag.StringVar(&cfg.EmbedModel, "embed-model",
		getEnv("SEMDEDUP_EMBED_MODEL", "paraphrase-multilingual-MiniLM-L12-v2"),
		"Embedding model name (env: SEMDEDUP_EMBED_MODEL)")

	flag.StringVar(&cfg.EmbedAPIKey, "embed-api-key",
		getEnv("SEMDEDUP_EMBED_API_KEY", ""),
		"API key for the embedding service (env: SEMDEDUP_EMBED_API_KEY)")

	flag.StringVar(&cfg.NATSURL, "nats-url",
		getEnv("SEMDEDUP_NATS_URL", ""),
		"NATS server URL for the embedding cache and KV lookups (env: SEMDEDUP_NATS_URL)")

	flag.StringVar(&cfg.Structural, "structural", lookupTrainWalk,
		"Structural vectors: train-walk, train-proximity, nats, a .json export or a sqlite-vec .db file")

	flag.StringVar(&cfg.Relational, "relational", "",
		"Relational vectors: nats, a .json export or a sqlite-vec .db file (empty disables)")

	flag.IntVar(&cfg.Dimensions, "dimensions",
		getEnvInt("SEMDEDUP_DIMENSIONS", 384),
		"Vector dimensionality for sqlite-vec and NATS lookups (env: SEMDEDUP_DIMENSIONS)")

	flag.StringVar(&cfg.OutputPath, "out", "-",
		"Output path for the match report JSON, - for stdout")

	flag.StringVar(&cfg.GoldPath, "gold", "",
		"Optional gold standard JSON for precision/recall evaluation")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("SEMDEDUP_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: SEMDEDUP_METRICS_PORT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SEMDEDUP_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SEMDEDUP_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SEMDEDUP_LOG_FORMAT", "json"),
		"Log format: json, text (env: SEMDEDUP_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("SEMDEDUP_DEBUG", false),
		"Enable debug mode (env: SEMDEDUP_DEBUG)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.Neo4jURI == "" {
		if cfg.SourcePath == "" || cfg.ReferencePath == "" {
			return fmt.Errorf("either -source and -reference files or -neo4j-uri must be given")
		}
		for _, path := range []string{cfg.SourcePath, cfg.ReferencePath} {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("graph file not found: %s", path)
			}
		}
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if err := validateLookupFlag("structural", cfg.Structural, false); err != nil {
		return err
	}
	if err := validateLookupFlag("relational", cfg.Relational, true); err != nil {
		return err
	}
	if (cfg.Structural == lookupNATS || cfg.Relational == lookupNATS) && cfg.NATSURL == "" {
		return fmt.Errorf("nats lookups require -nats-url")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}
	if cfg.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive: %d", cfg.Dimensions)
	}

	return nil
}

func validateLookupFlag(name, value string, allowEmpty bool) error {
	switch {
	case value == "":
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("-%s must be set", name)
	case value == lookupTrainWalk, value == lookupTrainProximity, value == lookupNATS:
		return nil
	case strings.HasSuffix(value, ".json"), strings.HasSuffix(value, ".db"), strings.HasSuffix(value, ".sqlite"):
		if _, err := os.Stat(value); err != nil {
			return fmt.Errorf("%s lookup file not found: %s", name, value)
		}
		return nil
	default:
		return fmt.Errorf("invalid -%s value: %s", name, value)
	}
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Hybrid Duplicate Entity Matching

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Match two N-Triples graphs with the lexical fallback encoder
  %s --source=phkg.nt --reference=master.nt --out=matches.json

  # Use a TEI sentence encoder and a NATS embedding cache
  %s --source=phkg.nt --reference=master.nt \
      --embed-url=http://localhost:8082 --nats-url=nats://localhost:4222

  # Read graphs from Neo4j and precomputed vectors from sqlite-vec
  %s --neo4j-uri=bolt://localhost:7687 --neo4j-password=secret \
      --structural=vectors.db

  # Evaluate against a gold standard
  %s --source=phkg.nt --reference=master.nt --gold=gold.json

  # Validate configuration only
  %s --config=dedup.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
