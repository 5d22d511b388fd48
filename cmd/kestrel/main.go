// Kestrel - Transaction normalization and anomaly detection.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/analyzer"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/audit"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/ingest"
	"github.com/opensource-finance/kestrel/internal/report"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "analyze":
		if len(os.Args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: kestrel analyze <input.csv> <output.csv>")
			os.Exit(2)
		}
		if err := runAnalyze(cfg, os.Args[2], os.Args[3]); err != nil {
			slog.Error("analysis failed", "error", err)
			os.Exit(1)
		}

	case "serve":
		if err := runServe(cfg); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}

	default:
		printUsage()
		os.Exit(2)
	}
}

// loadConfig applies KESTREL_* environment overrides to the defaults.
func loadConfig() *domain.Config {
	cfg := domain.DefaultConfig()

	if host := os.Getenv("KESTREL_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("KESTREL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if os.Getenv("KESTREL_KEEP_SUB_BRANDS") == "true" {
		cfg.Pipeline.KeepSubBrands = true
	}
	if os.Getenv("KESTREL_AUDIT") == "false" {
		cfg.Audit.Enabled = false
	}
	if path := os.Getenv("KESTREL_AUDIT_PATH"); path != "" {
		cfg.Audit.Path = path
	}

	return cfg
}

// runAnalyze processes one CSV file end to end: normalized transactions go
// to the output file, the report and risk assessment go to stdout, and the
// audit trail records the pipeline events unless auditing is disabled.
func runAnalyze(cfg *domain.Config, inPath, outPath string) error {
	ctx := context.Background()

	engine, err := rules.NewEngine()
	if err != nil {
		return fmt.Errorf("initializing rule engine: %w", err)
	}
	defer engine.Close()
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		return fmt.Errorf("loading default rules: %w", err)
	}

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("initializing event bus: %w", err)
	}

	if cfg.Audit.Enabled {
		trail, err := audit.NewTrail(cfg.Audit, slog.Default())
		if err != nil {
			busImpl.Close()
			return fmt.Errorf("initializing audit trail: %w", err)
		}
		defer trail.Close()
		if err := trail.Start(ctx, busImpl); err != nil {
			busImpl.Close()
			return fmt.Errorf("starting audit trail: %w", err)
		}
	}
	// Bus Close drains before the trail's deferred Close runs, so every
	// published event reaches the audit file.
	defer busImpl.Close()

	records, err := ingest.ReadFile(inPath)
	if err != nil {
		return err
	}

	a := analyzer.New(cfg, engine, busImpl, nil)
	result, err := a.Run(ctx, records)
	if err != nil {
		return err
	}

	if err := ingest.WriteFile(outPath, result.Transactions); err != nil {
		return err
	}

	fmt.Print(report.Render(result.Transactions, result.Failures, result.Summary, result.Risk))

	slog.Info("analysis written",
		"input", inPath,
		"output", outPath,
		"transactions", len(result.Transactions),
		"failures", len(result.Failures))
	return nil
}

// runServe starts the HTTP API with the full component stack.
func runServe(cfg *domain.Config) error {
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "max_size", cfg.Cache.MaxSize)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("initializing event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "buffer_size", cfg.EventBus.BufferSize)

	engine, err := rules.NewEngine()
	if err != nil {
		return fmt.Errorf("initializing rule engine: %w", err)
	}
	defer engine.Close()
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		return fmt.Errorf("loading default rules: %w", err)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	if cfg.Audit.Enabled {
		trail, err := audit.NewTrail(cfg.Audit, slog.Default())
		if err != nil {
			return fmt.Errorf("initializing audit trail: %w", err)
		}
		defer trail.Close()
		if err := trail.Start(ctx, busImpl); err != nil {
			return fmt.Errorf("starting audit trail: %w", err)
		}
	}

	a := analyzer.New(cfg, engine, busImpl, slog.Default())

	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	srv := api.NewServer(cfg.Server, a, engine, cacheImpl, busImpl, cacheTTL, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  kestrel analyze <input.csv> <output.csv>   Analyze a CSV file")
	fmt.Fprintln(os.Stderr, "  kestrel serve                              Start the HTTP API")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  KESTREL - Transaction Analysis Engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze         - Analyze a transaction batch")
	fmt.Println("    GET  /analyses/{id}   - Get a retained analysis")
	fmt.Println("    GET  /rules           - List watch rules")
	fmt.Println("    POST /rules           - Create a watch rule")
	fmt.Println("    POST /rules/reload    - Restore the default rules")
	fmt.Println("    GET  /health          - Health check")
	fmt.Println()
}
