package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Vodeneev/surebet/internal/pipeline"
	pkgconfig "github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/logging"
)

const (
	defaultConfigPath = "configs/surebet.yaml"
)

type config struct {
	configPath string
	stake      float64
	notify     bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("Arbitrage detection failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.stake > 0 {
		appConfig.Arbitrage.TotalStake = cfg.stake
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	_, closeLog, err := logging.SetupLogger(&appConfig.Logging, "arbitrage")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []pipeline.Option{pipeline.WithReport(os.Stdout)}
	if cfg.notify {
		notifiers, err := pipeline.Notifiers(appConfig)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithNotifiers(notifiers...))
	}
	sink, err := pipeline.OpenSink(ctx, appConfig.Storage)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
		opts = append(opts, pipeline.WithSink(sink))
	}

	p := pipeline.New(appConfig, opts...)
	groups := p.LoadGroups()

	opps, _, err := p.Detect(groups)
	if err != nil {
		return err
	}
	p.Deliver(ctx, uuid.NewString(), opps)
	return nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.Float64Var(&cfg.stake, "stake", 0, "Total stake to distribute, overrides arbitrage.total_stake")
	flag.BoolVar(&cfg.notify, "notify", true, "Send opportunities to the configured webhook and Telegram chat")
	flag.Parse()
	return cfg
}
