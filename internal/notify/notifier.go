// Package notify delivers detected opportunities to external channels.
package notify

import (
	"context"
	"log/slog"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// Notifier delivers a batch of opportunities. A failure must not stop the pipeline.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, opps []models.Opportunity) error
}

// NotifyAll runs every notifier in order and returns how many succeeded. Failures are logged.
func NotifyAll(ctx context.Context, notifiers []Notifier, opps []models.Opportunity) int {
	ok := 0
	for _, n := range notifiers {
		if err := n.Notify(ctx, opps); err != nil {
			slog.Error("Notification failed", "notifier", n.Name(), "opportunities", len(opps), "error", err)
			continue
		}
		ok++
	}
	return ok
}
