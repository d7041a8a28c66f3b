package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pipeline"
	pkgconfig "github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/logging"

	// Register all supported sources via init().
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/all"
)

const (
	defaultConfigPath = "configs/surebet.yaml"
)

type config struct {
	configPath string
	sources    string // overrides fetcher.enabled, comma separated
	headful    bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("Fetcher failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.sources != "" {
		appConfig.Fetcher.Enabled = strings.Split(cfg.sources, ",")
	}
	if cfg.headful {
		headless := false
		appConfig.Fetcher.Headless = &headless
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	_, closeLog, err := logging.SetupLogger(&appConfig.Logging, "fetcher")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	sources, err := fetcher.Enabled(appConfig)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no sources enabled (available: %s)", strings.Join(fetcher.AvailableNames(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Fetching today's matches from all bookmakers...")
	results, err := pipeline.New(appConfig, pipeline.WithSources(sources...)).Fetch(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("  %-12s ERROR: %v\n", r.Source, r.Err)
			continue
		}
		fmt.Printf("  %-12s %d events (%s)\n", r.Source, len(r.Events), r.Duration.Round(time.Millisecond))
	}
	fmt.Println("Done.")
	return nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.StringVar(&cfg.sources, "sources", "", "Comma separated sources to run, overrides fetcher.enabled")
	flag.BoolVar(&cfg.headful, "headful", false, "Show the browser window")
	flag.Parse()
	return cfg
}
