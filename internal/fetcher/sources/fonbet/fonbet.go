// Package fonbet reads football lines from the listBase responses fonbet.gr loads while scrolling.
package fonbet

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const (
	Name      = "fonbet"
	SportsURL = "https://fonbet.gr/sports/football"
	apiMarker = "events/listBase"

	factorHome = 921
	factorDraw = 922
	factorAway = 923

	// nextDayGrace extends the window past midnight to late kick-offs.
	nextDayGrace = 3 * time.Hour
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

func (s *Source) FetchToday(ctx context.Context) ([]models.Event, error) {
	actions := append(fetcher.Scroll(5, 1000, time.Second), chromedp.Sleep(3*time.Second))
	bodies, err := s.browser.CaptureJSON(ctx, SportsURL, fetcher.CaptureOptions{
		Match:   func(url string) bool { return strings.Contains(url, apiMarker) },
		Settle:  3 * time.Second,
		Actions: actions,
	})
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("did not capture any listBase response from %s", SportsURL)
	}
	return ExtractAll(bodies, s.now(), s.loc), nil
}

type factor struct {
	F int                `json:"f"`
	V *fetcher.FlexFloat `json:"v"`
}

type listBase struct {
	Events []struct {
		ID        int64  `json:"id"`
		Team1     string `json:"team1"`
		Team2     string `json:"team2"`
		StartTime int64  `json:"startTime"` // epoch seconds
	} `json:"events"`
	CustomFactors []struct {
		E       int64    `json:"e"`
		Factors []factor `json:"factors"`
	} `json:"customFactors"`
}

// ExtractAll merges several listBase responses, keeping the first event per id.
// Responses that fail to decode are skipped.
func ExtractAll(bodies [][]byte, now time.Time, loc *time.Location) []models.Event {
	return fetcher.MergeByID(Name, bodies, func(body []byte) ([]models.Event, error) {
		return Extract(body, now, loc)
	})
}

// Extract converts one listBase response into events starting between today 00:00 and
// 03:00 the next day in loc, both ends inclusive. Only events with all three 1X2 factors are kept.
func Extract(payload []byte, now time.Time, loc *time.Location) ([]models.Event, error) {
	var lb listBase
	if err := json.Unmarshal(payload, &lb); err != nil {
		return nil, fmt.Errorf("failed to decode fonbet listBase: %w", err)
	}

	factors := make(map[int64][]factor, len(lb.CustomFactors))
	for _, cf := range lb.CustomFactors {
		if cf.E != 0 {
			factors[cf.E] = cf.Factors
		}
	}

	from, until := fetcher.Window(now, loc, nextDayGrace)

	var out []models.Event
	for _, ev := range lb.Events {
		if ev.StartTime == 0 || ev.ID == 0 || ev.Team1 == "" || ev.Team2 == "" {
			continue
		}
		start := time.Unix(ev.StartTime, 0).In(loc)
		if !fetcher.InWindow(start, from, until) {
			continue
		}

		var home, draw, away float64
		for _, f := range factors[ev.ID] {
			if f.V == nil {
				continue
			}
			switch f.F {
			case factorHome:
				home = float64(*f.V)
			case factorDraw:
				draw = float64(*f.V)
			case factorAway:
				away = float64(*f.V)
			}
		}
		if home <= 0 || draw <= 0 || away <= 0 {
			continue
		}

		out = append(out, models.Event{
			Booker:  Name,
			EventID: strconv.FormatInt(ev.ID, 10),
			Home:    ev.Team1,
			Away:    ev.Team2,
			Start:   start,
			Markets: map[string]models.Market{
				models.MarketMatchResult: models.NewMatchResultMarket(home, draw, away),
			},
		})
	}
	return out, nil
}
