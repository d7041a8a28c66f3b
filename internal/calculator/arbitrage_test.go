package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

var kickoff = time.Date(2026, 10, 18, 19, 0, 0, 0, time.FixedZone("EEST", 3*60*60))

func quote(booker string, home, draw, away float64) models.Event {
	return models.Event{
		Booker:  booker,
		Home:    "Olympiacos",
		Away:    "PAOK",
		Start:   kickoff,
		Markets: map[string]models.Market{models.MarketMatchResult: models.NewMatchResultMarket(home, draw, away)},
	}
}

func group(events ...models.Event) *models.FixtureGroup {
	g := models.NewFixtureGroup(events[0])
	for _, ev := range events[1:] {
		g.Add(ev)
	}
	return g
}

func best(h float64, hb string, d float64, db string, a float64, ab string) models.BestOdds {
	return models.BestOdds{
		models.OutcomeHome: {Odds: h, Bookmaker: hb},
		models.OutcomeDraw: {Odds: d, Bookmaker: db},
		models.OutcomeAway: {Odds: a, Bookmaker: ab},
	}
}

func TestBestOdds(t *testing.T) {
	g := group(
		quote("novibet", 2.10, 3.20, 3.90),
		quote("stoiximan", 2.00, 4.00, 4.10),
		quote("fonbet", 1.95, 3.60, 4.50),
	)
	got := BestOdds(g)
	assert.Equal(t, models.OddsPick{Odds: 2.10, Bookmaker: "novibet"}, got[models.OutcomeHome])
	assert.Equal(t, models.OddsPick{Odds: 4.00, Bookmaker: "stoiximan"}, got[models.OutcomeDraw])
	assert.Equal(t, models.OddsPick{Odds: 4.50, Bookmaker: "fonbet"}, got[models.OutcomeAway])
}

func TestBestOdds_TieKeepsFirstContribution(t *testing.T) {
	g := group(
		quote("stoiximan", 2.50, 3.00, 3.00),
		quote("novibet", 2.50, 3.00, 3.10),
	)
	got := BestOdds(g)
	assert.Equal(t, "stoiximan", got[models.OutcomeHome].Bookmaker)
	assert.Equal(t, "stoiximan", got[models.OutcomeDraw].Bookmaker)
	assert.Equal(t, "novibet", got[models.OutcomeAway].Bookmaker)
}

func TestBestOdds_MissingOutcomes(t *testing.T) {
	noMarket := quote("bwin", 0, 0, 0)
	noMarket.Markets = nil
	g := group(quote("novibet", 2.10, 0, 3.90), noMarket)

	got := BestOdds(g)
	assert.Equal(t, models.OddsPick{}, got[models.OutcomeDraw])
	assert.Equal(t, 2.10, got[models.OutcomeHome].Odds)
}

func TestDetect_Arithmetic(t *testing.T) {
	opp, ok := Detect(best(2.10, "novibet", 4.00, "stoiximan", 4.50, "fonbet"), 1000)
	require.True(t, ok)

	assert.Equal(t, 0.9484, opp.TotalInverse)
	assert.Equal(t, 5.44, opp.ArbitragePercentage)
	assert.InDelta(t, 54.40, opp.Profit, 0.02)
	assert.Equal(t, 54.39, opp.Profit)
	assert.Equal(t, 1000.0, opp.TotalStake)
	assert.Equal(t, 3, opp.UniqueBookmakers)
	assert.True(t, opp.IsExecutable)

	assert.Equal(t, 502.09, opp.StakeDistribution[models.OutcomeHome])
	assert.Equal(t, 263.6, opp.StakeDistribution[models.OutcomeDraw])
	assert.Equal(t, 234.31, opp.StakeDistribution[models.OutcomeAway])

	// every outcome pays the same
	for _, o := range models.MatchResultOutcomes {
		payout := opp.StakeDistribution[o] * opp.BestOdds[o].Odds
		assert.InDelta(t, 1054.39, payout, 0.05, "payout for %s", o)
	}
}

func TestDetect_NoArbitrage(t *testing.T) {
	opp, ok := Detect(best(1.90, "a", 3.40, "b", 4.00, "c"), 1000)
	assert.False(t, ok)
	assert.Nil(t, opp)
}

func TestDetect_IncompleteOdds(t *testing.T) {
	opp, ok := Detect(best(2.10, "a", 0, "", 4.50, "c"), 1000)
	assert.False(t, ok)
	assert.Nil(t, opp)

	_, ok = Detect(models.BestOdds{}, 1000)
	assert.False(t, ok)
}

func TestDetect_SingleBookmakerIsNotExecutable(t *testing.T) {
	opp, ok := Detect(best(2.10, "novibet", 4.00, "novibet", 4.50, "novibet"), 1000)
	require.True(t, ok)
	assert.Equal(t, 1, opp.UniqueBookmakers)
	assert.False(t, opp.IsExecutable)
}

func TestDetect_BoundaryIsNotArbitrage(t *testing.T) {
	_, ok := Detect(best(3, "a", 3, "b", 3, "c"), 1000)
	assert.False(t, ok, "total inverse of exactly 1 is not an arbitrage")
}

func TestScan(t *testing.T) {
	small := group(
		quote("novibet", 2.10, 3.60, 4.00),
		quote("stoiximan", 2.00, 3.80, 3.90),
		quote("fonbet", 1.90, 3.50, 4.20),
	)
	large := group(
		quote("novibet", 2.10, 3.20, 3.90),
		quote("stoiximan", 2.00, 4.00, 4.10),
		quote("fonbet", 1.95, 3.60, 4.50),
	)
	none := group(
		quote("novibet", 1.90, 3.40, 4.00),
		quote("stoiximan", 1.85, 3.30, 3.90),
	)
	incomplete := group(
		quote("novibet", 2.10, 0, 4.50),
		quote("stoiximan", 2.00, 0, 4.10),
	)
	sameBook := group(
		quote("novibet", 2.10, 4.00, 4.50),
		quote("stoiximan", 1.50, 3.00, 3.00),
	)
	large.Home, small.Home = "Large", "Small"

	opps, stats := Scan([]*models.FixtureGroup{small, none, large, incomplete, sameBook}, 1000)
	require.Len(t, opps, 2)
	assert.Equal(t, "Large", opps[0].Home)
	assert.Equal(t, "Small", opps[1].Home)
	assert.GreaterOrEqual(t, opps[0].ArbitragePercentage, opps[1].ArbitragePercentage)
	assert.Equal(t, []string{"novibet", "stoiximan", "fonbet"}, opps[0].Bookmakers)
	assert.True(t, opps[0].Start.Equal(kickoff))

	assert.Equal(t, ScanStats{Groups: 5, IncompleteOdds: 1, NoArbitrage: 1, NonExecutable: 1, Executable: 2}, stats)
}

func TestScan_DefaultStake(t *testing.T) {
	g := group(
		quote("novibet", 2.10, 3.20, 3.90),
		quote("stoiximan", 2.00, 4.00, 4.10),
		quote("fonbet", 1.95, 3.60, 4.50),
	)
	opps, _ := Scan([]*models.FixtureGroup{g}, 0)
	require.Len(t, opps, 1)
	assert.Equal(t, DefaultTotalStake, opps[0].TotalStake)
}
