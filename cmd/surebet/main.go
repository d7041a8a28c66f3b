package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pipeline"
	pkgconfig "github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/health"
	"github.com/Vodeneev/surebet/internal/pkg/logging"

	// Register all supported sources via init().
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/all"
)

const (
	defaultConfigPath = "configs/surebet.yaml"
)

type config struct {
	configPath string
	once       bool
	skipFetch  bool
	healthAddr string
}

func main() {
	if err := run(); err != nil {
		slog.Error("Surebet failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.healthAddr != "" {
		appConfig.Health.Addr = cfg.healthAddr
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	_, closeLog, err := logging.SetupLogger(&appConfig.Logging, "surebet")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifiers, err := pipeline.Notifiers(appConfig)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{pipeline.WithNotifiers(notifiers...)}

	if !cfg.skipFetch {
		sources, err := fetcher.Enabled(appConfig)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithSources(sources...))
	}

	sink, err := pipeline.OpenSink(ctx, appConfig.Storage)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
		opts = append(opts, pipeline.WithSink(sink))
	}

	if cfg.once {
		opts = append(opts, pipeline.WithReport(os.Stdout))
		_, err := pipeline.New(appConfig, opts...).RunOnce(ctx)
		return err
	}

	store := health.NewStore()
	trigger := pipeline.NewTrigger()
	opts = append(opts, pipeline.WithStore(store))

	handlerOpts := health.Options{Service: "surebet", Trigger: trigger.Fire}
	if sink != nil {
		handlerOpts.History = sink
	}
	if err := health.Run(ctx, appConfig.Health.Addr, "surebet", health.NewHandler(store, handlerOpts), appConfig.Health.ReadHeaderTimeout); err != nil {
		return err
	}

	pipeline.New(appConfig, opts...).RunLoop(ctx, appConfig.Health.Interval, trigger)
	slog.Info("Surebet stopped")
	return nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.BoolVar(&cfg.once, "once", false, "Run a single cycle and exit")
	flag.BoolVar(&cfg.skipFetch, "skip-fetch", false, "Use existing raw files instead of fetching")
	flag.StringVar(&cfg.healthAddr, "health-addr", "", "Health server listen address, overrides health.addr")
	flag.Parse()
	return cfg
}
