// Package bet365 decodes the compact soccerupcomingmatches text feed of bet365.gr.
//
// The feed is a "|"-separated list of records. Each record starts with a type tag followed by
// ";"-separated KEY=VALUE fields:
//
//	MG  market group (competition): ID, NA or L3 for its name, N2/N3/EX for the outcome labels
//	MA  links a fixture FI to a market group
//	PA  participants or prices: NA/N2 home and away, BC kick-off, MP/FS live state, OD fractional odds
package bet365

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const (
	Name      = "bet365"
	PageURL   = "https://www.bet365.gr/#/AC/B1/C1/D1002/G40/J99/Q1/I1/F^24/"
	APIPrefix = "https://www.bet365.gr/matchmarketscontentapi/soccerupcomingmatches"

	feedPrefix = "F|"
	// BC timestamps are local kick-off times.
	bcLayout = "20060102150405"
)

func init() {
	fetcher.Register(Name, func(cfg *config.Config) fetcher.Source {
		return New(fetcher.NewBrowser(cfg.Fetcher), cfg.Fetcher.Location())
	})
}

type Source struct {
	browser *fetcher.Browser
	loc     *time.Location
	now     func() time.Time
}

func New(browser *fetcher.Browser, loc *time.Location) *Source {
	return &Source{browser: browser, loc: loc, now: time.Now}
}

func (s *Source) Name() string { return Name }

// FetchToday reads the last feed response the page requested.
func (s *Source) FetchToday(ctx context.Context) ([]models.Event, error) {
	bodies, err := s.browser.CaptureJSON(ctx, PageURL, fetcher.CaptureOptions{
		Match:         func(url string) bool { return strings.HasPrefix(url, APIPrefix) },
		Settle:        4 * time.Second,
		ReloadIfEmpty: true,
	})
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("did not capture the soccerupcomingmatches feed from %s", PageURL)
	}
	feed := string(bodies[len(bodies)-1])
	if !strings.HasPrefix(feed, feedPrefix) {
		return nil, fmt.Errorf("unexpected bet365 feed format: %q", truncate(feed, 200))
	}
	return ParseFeed(feed, s.now(), s.loc), nil
}

type fixture struct {
	id         string
	group      string
	home, away string
	start      time.Time
	live       bool
	odds       []float64
}

type group struct {
	league string
	labels []string
}

// ParseFeed returns today's pre-match fixtures in loc that carry at least three prices.
// Fixtures keep the order in which they first appear in the feed.
func ParseFeed(feed string, now time.Time, loc *time.Location) []models.Event {
	groups := map[string]group{}
	fixtures := map[string]*fixture{}
	var order []string
	currentGroup := ""

	get := func(id string) *fixture {
		fx, ok := fixtures[id]
		if !ok {
			fx = &fixture{id: id}
			fixtures[id] = fx
			order = append(order, id)
		}
		return fx
	}

	for _, record := range strings.Split(feed, "|") {
		tag, fields := parseRecord(record)
		switch tag {
		case "MG":
			id := fields["ID"]
			if id == "" {
				continue
			}
			currentGroup = id
			g := group{league: fields["NA"]}
			if g.league == "" {
				g.league = fields["L3"]
			}
			for _, key := range []string{"N2", "N3", "EX"} {
				if l := fields[key]; l != "" {
					g.labels = append(g.labels, l)
				}
			}
			groups[id] = g

		case "MA":
			fi := fields["FI"]
			if fi == "" {
				continue
			}
			fx := get(fi)
			if g := fields["MA"]; g != "" {
				fx.group = g
			} else if currentGroup != "" {
				fx.group = currentGroup
			}

		case "PA":
			fi := fields["FI"]
			if fi == "" {
				continue
			}
			if na, ok := fields["NA"]; ok {
				if n2, ok := fields["N2"]; ok {
					fx := get(fi)
					fx.home, fx.away = na, n2
					if bc := fields["BC"]; bc != "" {
						if t, err := time.ParseInLocation(bcLayout, bc, loc); err == nil {
							fx.start = t
						}
					}
					fx.live = notZero(fields, "MP") || notZero(fields, "FS")
				}
			}
			if od, ok := fields["OD"]; ok {
				if dec, ok := FractionalToDecimal(od); ok {
					fx := get(fi)
					fx.odds = append(fx.odds, dec)
				}
			}
		}
	}

	var out []models.Event
	for _, id := range order {
		fx := fixtures[id]
		if fx.home == "" || fx.away == "" || fx.start.IsZero() || fx.live {
			continue
		}
		if !fetcher.SameDay(fx.start, now, loc) {
			continue
		}
		if len(fx.odds) < 3 {
			slog.Debug("bet365: fixture without three prices", "fixture", id, "prices", len(fx.odds))
			continue
		}
		g := groups[fx.group]
		out = append(out, models.Event{
			Booker:  Name,
			EventID: id,
			League:  g.league,
			Home:    fx.home,
			Away:    fx.away,
			Start:   fx.start,
			Markets: map[string]models.Market{models.MarketMatchResult: matchResult(g.labels, fx.odds)},
		})
	}
	return out
}

// matchResult assigns prices in feed order to the group's labels when they name the three
// outcomes, and to 1, X, 2 otherwise.
func matchResult(labels []string, odds []float64) models.Market {
	codes := models.MatchResultOutcomes[:]
	if isOutcomeSet(labels) {
		codes = labels
	}
	outcomes := make(map[string]float64, 3)
	for i, code := range codes {
		outcomes[code] = odds[i]
	}
	return models.Market{Key: models.MarketMatchResult, Outcomes: outcomes}
}

func isOutcomeSet(labels []string) bool {
	if len(labels) != 3 {
		return false
	}
	seen := map[string]bool{}
	for _, l := range labels {
		if l != models.OutcomeHome && l != models.OutcomeDraw && l != models.OutcomeAway {
			return false
		}
		seen[l] = true
	}
	return len(seen) == 3
}

func parseRecord(record string) (string, map[string]string) {
	parts := strings.Split(record, ";")
	fields := make(map[string]string, len(parts))
	for _, p := range parts[1:] {
		if k, v, ok := strings.Cut(p, "="); ok {
			fields[k] = v
		}
	}
	return parts[0], fields
}

func notZero(fields map[string]string, key string) bool {
	v, ok := fields[key]
	return ok && v != "0"
}

// FractionalToDecimal converts "8/5" to 2.6.
func FractionalToDecimal(frac string) (float64, bool) {
	num, den, ok := strings.Cut(frac, "/")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	d, err := strconv.Atoi(den)
	if err != nil || d == 0 {
		return 0, false
	}
	return 1 + float64(n)/float64(d), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
