package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/surebet/internal/pkg/models"
	"github.com/Vodeneev/surebet/internal/pkg/storage"
)

func makeOpportunity(home string, pct float64) models.Opportunity {
	return models.Opportunity{
		Home:       home,
		Away:       "PAOK",
		Start:      time.Date(2026, 10, 18, 18, 30, 0, 0, time.UTC),
		Bookmakers: []string{"novibet", "stoiximan", "fonbet"},
		BestOdds: models.BestOdds{
			models.OutcomeHome: {Odds: 2.1, Bookmaker: "novibet"},
			models.OutcomeDraw: {Odds: 4.0, Bookmaker: "stoiximan"},
			models.OutcomeAway: {Odds: 4.5, Bookmaker: "fonbet"},
		},
		ArbitragePercentage: pct,
		TotalInverse:        0.9484,
		TotalStake:          1000,
		StakeDistribution: map[string]float64{
			models.OutcomeHome: 502.08,
			models.OutcomeDraw: 263.59,
			models.OutcomeAway: 234.3,
		},
		Profit:           54.4,
		UniqueBookmakers: 3,
		IsExecutable:     true,
	}
}

func openSQLite(t *testing.T) *storage.SQLOpportunityStorage {
	t.Helper()
	s, err := storage.NewSQLOpportunityStorage(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLOpportunityStorage_SaveAndRecent(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	runID := uuid.NewString()

	n, err := s.SaveOpportunities(ctx, runID, []models.Opportunity{
		makeOpportunity("Olympiacos", 2.5),
		makeOpportunity("AEK", 5.44),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recent, err := s.RecentOpportunities(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Best percentage first within a run
	assert.Equal(t, "AEK", recent[0].Home)
	assert.InDelta(t, 5.44, recent[0].ArbitragePercentage, 1e-9)
	assert.Equal(t, runID, recent[0].RunID)
	assert.Equal(t, []string{"novibet", "stoiximan", "fonbet"}, recent[0].Bookmakers)
	assert.Equal(t, "fonbet", recent[0].BestOdds[models.OutcomeAway].Bookmaker)
	assert.InDelta(t, 4.5, recent[0].BestOdds[models.OutcomeAway].Odds, 1e-9)
	assert.InDelta(t, 263.59, recent[0].StakeDistribution[models.OutcomeDraw], 1e-9)
	assert.True(t, recent[0].IsExecutable)
	assert.True(t, recent[0].Start.Equal(time.Date(2026, 10, 18, 18, 30, 0, 0, time.UTC)))

	count, err := s.CountByRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLOpportunityStorage_SaveEmpty(t *testing.T) {
	s := openSQLite(t)
	n, err := s.SaveOpportunities(context.Background(), uuid.NewString(), nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLOpportunityStorage_RecentLimit(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.SaveOpportunities(ctx, uuid.NewString(), []models.Opportunity{makeOpportunity("Lamia", float64(i))})
		require.NoError(t, err)
	}
	recent, err := s.RecentOpportunities(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestNewSQLOpportunityStorage_Errors(t *testing.T) {
	_, err := storage.NewSQLOpportunityStorage(context.Background(), "mysql", "dsn")
	assert.Error(t, err)

	_, err = storage.NewSQLOpportunityStorage(context.Background(), storage.DriverPostgres, "")
	assert.Error(t, err)
}
