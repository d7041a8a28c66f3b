package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	baseRetryWait         = 500 * time.Millisecond
)

// ErrWebhookDisabled is returned when no webhook URL is configured.
var ErrWebhookDisabled = errors.New("webhook URL not configured")

// WebhookSender posts opportunity batches as {count, opportunities} JSON.
type WebhookSender struct {
	url        string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
}

// NewWebhookSender creates a sender. Transport errors, 429 and 5xx are retried up to maxRetries
// times with exponential backoff; every attempt waits on a limiter allowing ratePerSecond requests.
func NewWebhookSender(url string, timeout time.Duration, maxRetries int, ratePerSecond float64) *WebhookSender {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &WebhookSender{
		url:        url,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		maxRetries: maxRetries,
		retryWait:  baseRetryWait,
	}
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string {
	return "webhook"
}

// Send delivers a batch and reports success. An empty batch succeeds without a request;
// a missing URL is skipped and reported as not sent.
func (w *WebhookSender) Send(ctx context.Context, opps []models.Opportunity) bool {
	err := w.Notify(ctx, opps)
	switch {
	case errors.Is(err, ErrWebhookDisabled):
		slog.Debug("No webhook URL configured, skipping webhook notification")
		return false
	case err != nil:
		slog.Error("Webhook delivery failed", "opportunities", len(opps), "error", err)
		return false
	}
	return true
}

// SendOne delivers a single opportunity as a batch of one.
func (w *WebhookSender) SendOne(ctx context.Context, opp models.Opportunity) bool {
	return w.Send(ctx, []models.Opportunity{opp})
}

// Notify implements Notifier.
func (w *WebhookSender) Notify(ctx context.Context, opps []models.Opportunity) error {
	if w.url == "" {
		return ErrWebhookDisabled
	}
	if len(opps) == 0 {
		slog.Info("No opportunities to send to webhook")
		return nil
	}

	body, err := json.Marshal(models.WebhookPayload{Count: len(opps), Opportunities: opps})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	slog.Info("Sending opportunities to webhook", "count", len(opps), "url", w.url)
	if err := w.doWithRetry(ctx, body); err != nil {
		return err
	}
	slog.Info("Webhook delivery succeeded", "count", len(opps))
	return nil
}

// doWithRetry posts body until a final answer. Only 200 counts as delivered.
func (w *WebhookSender) doWithRetry(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			if err := w.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("webhook: rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook: send request: %w", err)
			slog.Warn("Webhook request failed", "attempt", attempt+1, "error", err)
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("webhook: status %d: %s", resp.StatusCode, string(respBody))
			slog.Warn("Webhook endpoint unavailable", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		default:
			return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
	}
	return fmt.Errorf("webhook: giving up after %d retries: %w", w.maxRetries, lastErr)
}

// sleep waits with exponential backoff, honouring the context.
func (w *WebhookSender) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * w.retryWait
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
