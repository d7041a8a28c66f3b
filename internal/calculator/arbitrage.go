// Package calculator finds sure bets in matched fixtures: the best price per 1X2 outcome,
// whether the inverse sum drops below one, and how to split a stake for a guaranteed profit.
package calculator

import (
	"log/slog"
	"math"
	"sort"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// DefaultTotalStake is the amount split across the three outcomes when none is configured.
const DefaultTotalStake = 1000.0

// verdict classifies one group for ScanStats.
type verdict int

const (
	verdictIncomplete verdict = iota
	verdictNoArbitrage
	verdictNonExecutable
	verdictExecutable
)

// ScanStats summarises one Scan.
type ScanStats struct {
	Groups         int
	IncompleteOdds int
	NoArbitrage    int
	NonExecutable  int
	Executable     int
}

// BestOdds picks the highest quote per outcome, walking contributions in group order.
// A later bookmaker replaces the pick only with a strictly greater price.
// Outcomes nobody quotes stay at odds 0 and an empty bookmaker.
func BestOdds(g *models.FixtureGroup) models.BestOdds {
	best := make(models.BestOdds, len(models.MatchResultOutcomes))
	for _, outcome := range models.MatchResultOutcomes {
		best[outcome] = models.OddsPick{}
	}
	for _, ev := range g.Events() {
		market, ok := ev.MatchResult()
		if !ok {
			continue
		}
		for _, outcome := range models.MatchResultOutcomes {
			odds, ok := market.Outcomes[outcome]
			if !ok || !isFinitePositiveOdd(odds) {
				continue
			}
			if odds > best[outcome].Odds {
				best[outcome] = models.OddsPick{Odds: odds, Bookmaker: ev.Booker}
			}
		}
	}
	return best
}

// Detect evaluates the arbitrage condition on best odds. It returns false when an outcome has no
// price or the inverse sum is at least one. The opportunity carries no fixture fields.
func Detect(best models.BestOdds, totalStake float64) (*models.Opportunity, bool) {
	opp, v := detect(best, totalStake)
	return opp, v == verdictExecutable || v == verdictNonExecutable
}

func detect(best models.BestOdds, totalStake float64) (*models.Opportunity, verdict) {
	var inverse [3]float64
	totalInverse := 0.0
	for i, outcome := range models.MatchResultOutcomes {
		odds := best[outcome].Odds
		if !isFinitePositiveOdd(odds) {
			return nil, verdictIncomplete
		}
		inverse[i] = 1 / odds
		totalInverse += inverse[i]
	}
	if totalInverse >= 1 {
		return nil, verdictNoArbitrage
	}

	unique := map[string]struct{}{}
	for _, outcome := range models.MatchResultOutcomes {
		unique[best[outcome].Bookmaker] = struct{}{}
	}

	stakes := make(map[string]float64, 3)
	picks := make(models.BestOdds, 3)
	for i, outcome := range models.MatchResultOutcomes {
		stakes[outcome] = round2(inverse[i] / totalInverse * totalStake)
		picks[outcome] = best[outcome]
	}

	opp := &models.Opportunity{
		BestOdds:            picks,
		ArbitragePercentage: round2((1/totalInverse - 1) * 100),
		TotalInverse:        round4(totalInverse),
		TotalStake:          totalStake,
		StakeDistribution:   stakes,
		Profit:              round2(totalStake/totalInverse - totalStake),
		UniqueBookmakers:    len(unique),
		IsExecutable:        len(unique) >= 2,
	}
	if !opp.IsExecutable {
		return opp, verdictNonExecutable
	}
	return opp, verdictExecutable
}

// Evaluate runs BestOdds and Detect on one group and fills the fixture fields.
func Evaluate(g *models.FixtureGroup, totalStake float64) (*models.Opportunity, bool) {
	opp, v := evaluate(g, totalStake)
	return opp, v == verdictExecutable || v == verdictNonExecutable
}

func evaluate(g *models.FixtureGroup, totalStake float64) (*models.Opportunity, verdict) {
	opp, v := detect(BestOdds(g), totalStake)
	if opp == nil {
		return nil, v
	}
	opp.Home = g.Home
	opp.Away = g.Away
	opp.Start = g.Start()
	opp.Bookmakers = g.Bookmakers()
	return opp, v
}

// Scan evaluates every group and returns the executable opportunities, best percentage first.
// Equal percentages keep group order.
func Scan(groups []*models.FixtureGroup, totalStake float64) ([]models.Opportunity, ScanStats) {
	if totalStake <= 0 {
		totalStake = DefaultTotalStake
	}

	var stats ScanStats
	var out []models.Opportunity
	for _, g := range groups {
		stats.Groups++
		opp, v := evaluate(g, totalStake)
		switch v {
		case verdictIncomplete:
			stats.IncompleteOdds++
		case verdictNoArbitrage:
			stats.NoArbitrage++
		case verdictNonExecutable:
			stats.NonExecutable++
			slog.Debug("Calculator: arbitrage needs a single bookmaker, skipping",
				"fixture", opp.Name(),
				"bookmaker", opp.BestOdds[models.OutcomeHome].Bookmaker,
				"percentage", opp.ArbitragePercentage)
		case verdictExecutable:
			stats.Executable++
			out = append(out, *opp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ArbitragePercentage > out[j].ArbitragePercentage
	})

	slog.Info("Calculator: scan finished",
		"groups", stats.Groups,
		"incomplete_odds", stats.IncompleteOdds,
		"no_arbitrage", stats.NoArbitrage,
		"non_executable", stats.NonExecutable,
		"executable", stats.Executable)
	return out, stats
}

func isFinitePositiveOdd(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
