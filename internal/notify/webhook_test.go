package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

func sampleOpportunity(home string, pct float64) models.Opportunity {
	return models.Opportunity{
		Home:       home,
		Away:       "PAOK",
		Start:      time.Date(2026, 10, 18, 19, 0, 0, 0, time.UTC),
		Bookmakers: []string{"novibet", "stoiximan", "fonbet"},
		BestOdds: models.BestOdds{
			models.OutcomeHome: {Odds: 2.1, Bookmaker: "novibet"},
			models.OutcomeDraw: {Odds: 4.0, Bookmaker: "stoiximan"},
			models.OutcomeAway: {Odds: 4.5, Bookmaker: "fonbet"},
		},
		ArbitragePercentage: pct,
		TotalInverse:        0.9484,
		TotalStake:          1000,
		StakeDistribution:   map[string]float64{"1": 502.09, "X": 263.6, "2": 234.31},
		Profit:              54.39,
		UniqueBookmakers:    3,
		IsExecutable:        true,
	}
}

func fastSender(url string, retries int) *WebhookSender {
	w := NewWebhookSender(url, time.Second, retries, 1000)
	w.retryWait = time.Millisecond
	return w
}

func TestWebhookSender_Send(t *testing.T) {
	var got models.WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok := fastSender(srv.URL, 0).Send(context.Background(), []models.Opportunity{
		sampleOpportunity("AEK", 5.44),
		sampleOpportunity("Aris", 1.2),
	})
	assert.True(t, ok)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Opportunities, 2)
	assert.Equal(t, "AEK", got.Opportunities[0].Home)
	assert.Equal(t, "fonbet", got.Opportunities[0].BestOdds[models.OutcomeAway].Bookmaker)
}

func TestWebhookSender_SendOne(t *testing.T) {
	var count int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p models.WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		count = p.Count
	}))
	defer srv.Close()

	assert.True(t, fastSender(srv.URL, 0).SendOne(context.Background(), sampleOpportunity("AEK", 5.44)))
	assert.Equal(t, 1, count)
}

func TestWebhookSender_EmptyBatchSendsNothing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	assert.True(t, fastSender(srv.URL, 0).Send(context.Background(), nil))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestWebhookSender_NoURL(t *testing.T) {
	w := fastSender("", 0)
	assert.False(t, w.Send(context.Background(), []models.Opportunity{sampleOpportunity("AEK", 1)}))
	assert.True(t, errors.Is(w.Notify(context.Background(), nil), ErrWebhookDisabled))
}

func TestWebhookSender_Non200IsFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := fastSender(srv.URL, 3)
	assert.False(t, w.Send(context.Background(), []models.Opportunity{sampleOpportunity("AEK", 1)}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-retryable statuses are not retried")
}

func TestWebhookSender_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := fastSender(srv.URL, 2).Notify(context.Background(), []models.Opportunity{sampleOpportunity("AEK", 1)})
	assert.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookSender_GivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := fastSender(srv.URL, 1).Notify(context.Background(), []models.Opportunity{sampleOpportunity("AEK", 1)})
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWebhookSender_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	assert.False(t, fastSender(url, 1).Send(context.Background(), []models.Opportunity{sampleOpportunity("AEK", 1)}))
}

type failingNotifier struct{ err error }

func (f failingNotifier) Name() string { return "failing" }
func (f failingNotifier) Notify(context.Context, []models.Opportunity) error {
	return f.err
}

func TestNotifyAll(t *testing.T) {
	notifiers := []Notifier{failingNotifier{errors.New("boom")}, failingNotifier{}}
	assert.Equal(t, 1, NotifyAll(context.Background(), notifiers, nil))
}
