package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Vodeneev/surebet/internal/notify"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/storage"
)

// Notifiers builds the delivery channels that are configured. None is not an error.
func Notifiers(cfg *config.Config) ([]notify.Notifier, error) {
	var out []notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		out = append(out, notify.NewWebhookSender(cfg.Notify.WebhookURL, cfg.Notify.Timeout, cfg.Notify.MaxRetries, cfg.Notify.RatePerSecond))
	}
	if cfg.Notify.TelegramEnabled() {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, cfg.Notify.TelegramInterval, cfg.Arbitrage.TopN)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		out = append(out, tg)
	}
	if len(out) == 0 {
		slog.Info("No notifiers configured")
	}
	return out, nil
}

// OpenSink opens the SQL opportunity sink. It returns nil when no DSN is configured.
func OpenSink(ctx context.Context, cfg config.StorageConfig) (*storage.SQLOpportunityStorage, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	return storage.NewSQLOpportunityStorage(ctx, cfg.Driver, cfg.DSN)
}
