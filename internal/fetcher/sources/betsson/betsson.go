// Package betsson reads the events-table widget responses of the betsson.gr "starting soon" page.
package betsson

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const (
	Name      = "betsson"
	CouponURL = "https://www.betsson.gr/el/stoixima/arxizi-sintoma/1440"
	apiMarker = "https://www.betsson.gr/api/sb/v1/widgets/events-table"

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
	bodies, err := s.browser.CaptureJSON(ctx, CouponURL, fetcher.CaptureOptions{
		Match:   func(url string) bool { return strings.Contains(url, apiMarker) },
		Settle:  5 * time.Second,
		Actions: actions,
	})
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("did not capture any events-table response from %s", CouponURL)
	}
	return ExtractAll(bodies, s.now(), s.loc), nil
}

type eventsTable struct {
	Data struct {
		Events []struct {
			ID              fetcher.FlexString `json:"id"`
			StartDate       string             `json:"startDate"`
			CompetitionName string             `json:"competitionName"`
			Participants    []struct {
				Side  int    `json:"side"`
				Label string `json:"label"`
			} `json:"participants"`
		} `json:"events"`
		Selections []selection `json:"selections"`
	} `json:"data"`
}

type selection struct {
	MarketID            string             `json:"marketId"`
	SelectionTemplateID string             `json:"selectionTemplateId"`
	Odds                *fetcher.FlexFloat `json:"odds"`
}

// ExtractAll merges widget responses, keeping the first event per id.
func ExtractAll(bodies [][]byte, now time.Time, loc *time.Location) []models.Event {
	return fetcher.MergeByID(Name, bodies, func(body []byte) ([]models.Event, error) {
		return Extract(body, now, loc)
	})
}

// Extract converts one widget response into events starting between today 00:00 and 03:00 the
// next day in loc. Selections are listed apart from events; a selection belongs to an event when
// its market id contains the event id.
func Extract(payload []byte, now time.Time, loc *time.Location) ([]models.Event, error) {
	var table eventsTable
	if err := json.Unmarshal(payload, &table); err != nil {
		return nil, fmt.Errorf("failed to decode betsson events table: %w", err)
	}

	from, until := fetcher.Window(now, loc, nextDayGrace)

	var out []models.Event
	for _, ev := range table.Data.Events {
		id := string(ev.ID)
		if id == "" {
			continue
		}
		start, err := fetcher.ParseTimestamp(ev.StartDate)
		if err != nil {
			slog.Debug("betsson: bad start time", "event", id, "value", ev.StartDate)
			continue
		}
		start = start.In(loc)
		if !fetcher.InWindow(start, from, until) {
			continue
		}

		var home, away string
		for _, p := range ev.Participants {
			switch p.Side {
			case 1:
				if home == "" {
					home = p.Label
				}
			case 2:
				if away == "" {
					away = p.Label
				}
			}
		}
		if home == "" || away == "" {
			continue
		}

		market, ok := matchResult(id, table.Data.Selections)
		if !ok {
			continue
		}
		out = append(out, models.Event{
			Booker:  Name,
			EventID: id,
			League:  ev.CompetitionName,
			Home:    home,
			Away:    away,
			Start:   start,
			Markets: map[string]models.Market{models.MarketMatchResult: market},
		})
	}
	return out, nil
}

func matchResult(eventID string, selections []selection) (models.Market, bool) {
	var home, draw, away float64
	for _, sel := range selections {
		if sel.Odds == nil || !strings.Contains(sel.MarketID, eventID) {
			continue
		}
		switch sel.SelectionTemplateID {
		case "HOME":
			home = float64(*sel.Odds)
		case "DRAW":
			draw = float64(*sel.Odds)
		case "AWAY":
			away = float64(*sel.Odds)
		}
	}
	if home <= 0 || draw <= 0 || away <= 0 {
		return models.Market{}, false
	}
	return models.NewMatchResultMarket(home, draw, away), true
}
