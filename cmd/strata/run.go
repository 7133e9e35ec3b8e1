package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glyphworks/strata/internal/audit"
	"github.com/glyphworks/strata/internal/backend"
	"github.com/glyphworks/strata/internal/cache"
	"github.com/glyphworks/strata/internal/config"
	"github.com/glyphworks/strata/internal/schema"
	"github.com/glyphworks/strata/internal/secrets"
	"github.com/glyphworks/strata/internal/workflow"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	showStats := fs.Bool("stats", false, "print cache statistics after the run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: strata run [--stats] <workflow.yaml>")
	}

	// An interrupt aborts the run; the runner still rolls back and
	// releases every connection before returning.
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	cfg := loadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	fileCfg, err := loadFileConfig(cfg)
	if err != nil {
		return err
	}

	runner, caches, err := buildRunner(cfg, fileCfg, logger)
	if err != nil {
		return err
	}

	wf, err := workflow.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	rep, runErr := runner.Run(ctx, wf)
	printReport(rep)

	if *showStats {
		printStats(caches)
	}
	return runErr
}

// buildRunner wires the cache tiers, backends, resolver, and audit log.
func buildRunner(cfg *Config, fileCfg *config.FileConfig, logger *slog.Logger) (*workflow.Runner, *cache.Orchestrator, error) {
	caches := cache.NewOrchestrator(
		cache.NewAliasCache(),
		cache.NewResourceCache(fileCfg.Cache.Capacity),
		cache.NewConnectionCache(logger),
	)

	sm, err := buildSecrets(cfg, fileCfg)
	if err != nil {
		return nil, nil, err
	}
	resolver := schema.NewResolver(caches.System(), sm, fileCfg.SchemaPaths)

	var auditor *audit.Logger
	if fileCfg.Audit {
		auditor = audit.NewLogger(audit.NewBus(), logger)
	}

	registry := backend.NewDefaultRegistry()
	return workflow.NewRunner(caches, resolver, registry, auditor, logger), caches, nil
}

// buildSecrets opens the credential store, auto-generating a persistent
// age key in the data dir when none is configured.
func buildSecrets(cfg *Config, fileCfg *config.FileConfig) (*secrets.Manager, error) {
	keyFile := fileCfg.Secrets.KeyFile
	storeFile := fileCfg.Secrets.StoreFile
	if keyFile == "" {
		keyFile = defaultDataPath("strata.age")
		storeFile = defaultDataPath("secrets.age")
	}
	enc, err := secrets.EnsureKeyFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("load age key: %w", err)
	}
	return secrets.NewManager(storeFile, enc), nil
}

func printReport(rep *workflow.Report) {
	fmt.Printf("run %s (%s)\n", rep.RunID, rep.Workflow)
	for _, step := range rep.Steps {
		status := "ok"
		if step.Err != nil {
			status = "failed: " + step.Err.Error()
		}
		fmt.Printf("  step %-12s [%s] %s\n", step.ID, step.Alias, status)
	}
	for _, alias := range rep.Aliases {
		fmt.Printf("  tx   %-12s %s\n", alias, rep.Tx[alias])
	}
	if rep.RollbackFailed {
		fmt.Println("  WARNING: rollback failed; backing store may be indeterminate")
	}
}

func printStats(caches *cache.Orchestrator) {
	out, err := json.MarshalIndent(caches.Stats(cache.TierAll), "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}
