package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Vodeneev/surebet/internal/pipeline"
	pkgconfig "github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/logging"
)

const (
	defaultConfigPath = "configs/surebet.yaml"
)

type config struct {
	configPath  string
	profile     string
	threshold   int
	minCoverage int
}

func main() {
	if err := run(); err != nil {
		slog.Error("Purifier failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.profile != "" {
		appConfig.Matcher.Profile = cfg.profile
	}
	if cfg.threshold > 0 {
		appConfig.Matcher.NameThreshold = cfg.threshold
	}
	if cfg.minCoverage > 0 {
		appConfig.Matcher.MinCoverage = cfg.minCoverage
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	_, closeLog, err := logging.SetupLogger(&appConfig.Logging, "purifier")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	p := pipeline.New(appConfig, pipeline.WithReport(os.Stdout))
	groups, stats, _, err := p.Purify()
	if err != nil {
		return err
	}
	slog.Info("Purification finished",
		"reference", stats.Reference,
		"seeds", stats.Seeds,
		"kept", len(groups),
		"low_coverage", stats.LowCoverage,
		"file", p.PurifiedPath())
	return nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.StringVar(&cfg.profile, "profile", "", "Matcher profile: purification or lenient")
	flag.IntVar(&cfg.threshold, "threshold", 0, "Team name similarity threshold (0-100), overrides the profile")
	flag.IntVar(&cfg.minCoverage, "min-coverage", 0, "Minimum bookmakers per fixture, overrides the profile")
	flag.Parse()
	return cfg
}
