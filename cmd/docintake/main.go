// Package main is the entry point for the docintake CLI: one-shot imports,
// extractions and template exports against the same pipeline the daemon runs.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/cache"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/gateway"
	"github.com/joseph-ayodele/docintake/internal/inference/openai"
	"github.com/joseph-ayodele/docintake/internal/mapping"
	"github.com/joseph-ayodele/docintake/internal/ratelimit"
	"github.com/joseph-ayodele/docintake/internal/retry"
)

var rootCmd = &cobra.Command{
	Use:   "docintake",
	Short: "Structured-data extraction and import pipeline",
	Long: `docintake ingests forwarded emails, scanned documents and delimited
files and turns them into validated, confidence-scored records.

Each operation is a subcommand: extract runs a one-shot extraction on a text
file, import parses and maps a delimited file onto a target schema, and
template produces an import template for a schema.`,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// stack bundles the pipeline pieces the subcommands share.
type stack struct {
	engine *extract.Engine
	mapper *mapping.Mapper
	log    *slog.Logger
}

// buildStack assembles an in-process pipeline: memory cache, env-configured
// OpenAI client, gateway with rate limiting and retries.
func buildStack() *stack {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := common.LoadConfig()
	client := openai.NewClient(openai.Config{
		APIKey:      cfg.Inference.APIKey,
		BaseURL:     cfg.Inference.BaseURL,
		Model:       cfg.Inference.Model,
		Temperature: cfg.Inference.Temperature,
		Timeout:     cfg.Inference.Timeout,
	}, logger)

	store := cache.NewMemoryStore(0)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Ceiling, cfg.RateLimit.Window)
	policy := retry.Policy{MaxAttempts: cfg.Inference.MaxRetries, BaseDelay: cfg.Inference.RetryBase}
	gw := gateway.New(client, store, limiter, policy, cfg.Cache.TTL, logger)

	return &stack{
		engine: extract.NewEngine(gw, logger),
		mapper: mapping.NewMapper(gw, logger),
		log:    logger,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
