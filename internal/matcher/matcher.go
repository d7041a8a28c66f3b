// Package matcher links events from several bookmakers that describe the same fixture.
//
// It is a greedy single pass: the bookmaker with the most events seeds groups, every other
// bookmaker contributes at most its first matching unconsumed event, and a consumed event is never
// offered to a later seed, even when the seed it joined is dropped for low coverage.
package matcher

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Vodeneev/surebet/internal/pkg/models"
	"github.com/Vodeneev/surebet/internal/pkg/normalizer"
)

// DefaultTimeThreshold is the largest start time skew between two quotes of the same fixture.
const DefaultTimeThreshold = 15 * time.Minute

// Profile configures one matching policy.
type Profile struct {
	Name          string
	TimeThreshold time.Duration
	// NameThreshold is the minimum similarity for home and away names. Ignored when Exact is set.
	NameThreshold int
	// Exact compares names by case and whitespace insensitive equality instead of similarity.
	Exact       bool
	MinCoverage int
}

// Lenient requires exact names and two bookmakers.
func Lenient() Profile {
	return Profile{
		Name:          "lenient",
		TimeThreshold: DefaultTimeThreshold,
		NameThreshold: 100,
		Exact:         true,
		MinCoverage:   2,
	}
}

// Purification is the production profile: fuzzy names and three bookmakers.
func Purification() Profile {
	return Profile{
		Name:          "purification",
		TimeThreshold: DefaultTimeThreshold,
		NameThreshold: normalizer.PurificationThreshold,
		MinCoverage:   3,
	}
}

// ProfileByName returns a named profile.
func ProfileByName(name string) (Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lenient":
		return Lenient(), true
	case "purification", "":
		return Purification(), true
	}
	return Profile{}, false
}

// BookmakerEvents is the ordered event list of one bookmaker.
type BookmakerEvents struct {
	Bookmaker string
	Events    []models.Event
}

// Stats summarises one matching pass.
type Stats struct {
	Reference    string
	Seeds        int
	Kept         int
	LowCoverage  int
	CoverageHist map[int]int // coverage -> kept groups
}

// Matcher runs a profile over bookmaker event lists.
type Matcher struct {
	profile Profile
}

// New returns a matcher for p.
func New(p Profile) *Matcher {
	if p.TimeThreshold <= 0 {
		p.TimeThreshold = DefaultTimeThreshold
	}
	if p.MinCoverage <= 0 {
		p.MinCoverage = 1
	}
	return &Matcher{profile: p}
}

// Profile returns the active profile.
func (m *Matcher) Profile() Profile {
	return m.profile
}

// EventsMatch reports whether two events describe the same fixture under the profile.
func (m *Matcher) EventsMatch(a, b models.Event) bool {
	diff := a.Start.Sub(b.Start)
	if diff < 0 {
		diff = -diff
	}
	if diff > m.profile.TimeThreshold {
		return false
	}
	return m.namesMatch(a.Home, b.Home) && m.namesMatch(a.Away, b.Away)
}

func (m *Matcher) namesMatch(a, b string) bool {
	if m.profile.Exact {
		return exactKey(a) == exactKey(b)
	}
	return normalizer.TeamsMatch(a, b, m.profile.NameThreshold)
}

// exactKey lowercases and collapses whitespace.
func exactKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Match groups events across bookmakers and returns the groups reaching the profile's coverage.
func (m *Matcher) Match(sources []BookmakerEvents) ([]*models.FixtureGroup, Stats) {
	stats := Stats{CoverageHist: map[int]int{}}
	if len(sources) == 0 {
		return nil, stats
	}

	order := orderByVolume(sources)
	consumed := newArena(sources)
	ref := order[0]
	stats.Reference = sources[ref].Bookmaker

	slog.Info("Matcher: starting pass",
		"profile", m.profile.Name,
		"reference", stats.Reference,
		"reference_events", len(sources[ref].Events),
		"bookmakers", len(sources))

	var groups []*models.FixtureGroup
	for i, seed := range sources[ref].Events {
		if !consumed.take(ref, i) {
			continue
		}
		stats.Seeds++
		group := models.NewFixtureGroup(seed)

		for _, src := range order[1:] {
			for j, candidate := range sources[src].Events {
				if consumed.isTaken(src, j) {
					continue
				}
				if !m.EventsMatch(seed, candidate) {
					continue
				}
				if !group.Add(candidate) {
					// Same booker name twice in the input lists; leave the record for a later seed.
					break
				}
				consumed.take(src, j)
				slog.Debug("Matcher: matched",
					"seed_booker", seed.Booker,
					"seed", seed.Name(),
					"booker", candidate.Booker,
					"candidate", candidate.Name(),
					"normalized_home", normalizer.Normalize(seed.Home))
				break
			}
		}

		if group.Coverage() < m.profile.MinCoverage {
			stats.LowCoverage++
			continue
		}
		stats.Kept++
		stats.CoverageHist[group.Coverage()]++
		groups = append(groups, group)
		slog.Debug("Matcher: fixture kept",
			"fixture", seed.Name(),
			"bookmakers", strings.Join(group.Bookmakers(), ","))
	}

	slog.Info("Matcher: pass finished",
		"profile", m.profile.Name,
		"seeds", stats.Seeds,
		"kept", stats.Kept,
		"low_coverage", stats.LowCoverage)
	return groups, stats
}

// orderByVolume returns source indexes by event count, descending; ties keep input order.
func orderByVolume(sources []BookmakerEvents) []int {
	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(sources[order[a]].Events) > len(sources[order[b]].Events)
	})
	return order
}

// CompleteMarkets keeps the groups where every contribution quotes 1, X and 2.
func CompleteMarkets(groups []*models.FixtureGroup) []*models.FixtureGroup {
	out := make([]*models.FixtureGroup, 0, len(groups))
	for _, g := range groups {
		if g.HasCompleteMatchResult() {
			out = append(out, g)
		}
	}
	slog.Info("Matcher: filtered groups with complete 1x2 markets", "complete", len(out), "total", len(groups))
	return out
}
