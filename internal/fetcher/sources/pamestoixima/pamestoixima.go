// Package pamestoixima reads the getEventsNew responses behind the pamestoixima.gr next-24h coupon.
package pamestoixima

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
	Name      = "pamestoixima"
	CouponURL = "https://www.pamestoixima.gr/next24hCoupon"
	APIPrefix = "https://capi.pamestoixima.gr/content-service/api/v1/q/getEventsNew"

	marketMatchResult = "MATCH_RESULT"
	nextDayGrace      = 3 * time.Hour
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

// FetchToday switches the coupon to its "all" tab so every 24h fixture is requested.
func (s *Source) FetchToday(ctx context.Context) ([]models.Event, error) {
	bodies, err := s.browser.CaptureJSON(ctx, CouponURL, fetcher.CaptureOptions{
		Match:  func(url string) bool { return strings.HasPrefix(url, APIPrefix) },
		Settle: 2 * time.Second,
		Actions: []chromedp.Action{
			fetcher.ClickByText(".MuiTab-root", "'Ολα", 3*time.Second),
			chromedp.Sleep(2 * time.Second),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("did not capture any getEventsNew response from %s", CouponURL)
	}
	return ExtractAll(bodies, s.now(), s.loc), nil
}

type outcome struct {
	SubType string `json:"subType"`
	Prices  []struct {
		Decimal *fetcher.FlexFloat `json:"decimal"`
	} `json:"prices"`
}

type eventsResponse struct {
	Data struct {
		Events []struct {
			ID        fetcher.FlexString `json:"id"`
			StartTime string             `json:"startTime"`
			Teams     []struct {
				Side string `json:"side"`
				Name string `json:"name"`
			} `json:"teams"`
			Type *struct {
				Name string `json:"name"`
			} `json:"type"`
			Markets []struct {
				GroupCode string    `json:"groupCode"`
				Outcomes  []outcome `json:"outcomes"`
			} `json:"markets"`
		} `json:"events"`
	} `json:"data"`
}

// ExtractAll merges coupon responses, keeping the first event per id.
func ExtractAll(bodies [][]byte, now time.Time, loc *time.Location) []models.Event {
	return fetcher.MergeByID(Name, bodies, func(body []byte) ([]models.Event, error) {
		return Extract(body, now, loc)
	})
}

// Extract converts one response into events starting between today 00:00 and 03:00 the next
// day in loc. Only MATCH_RESULT markets with three priced outcomes are read.
func Extract(payload []byte, now time.Time, loc *time.Location) ([]models.Event, error) {
	var resp eventsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode pamestoixima events: %w", err)
	}

	from, until := fetcher.Window(now, loc, nextDayGrace)

	var out []models.Event
	for _, ev := range resp.Data.Events {
		start, err := fetcher.ParseTimestamp(ev.StartTime)
		if err != nil {
			slog.Debug("pamestoixima: bad start time", "event", string(ev.ID), "value", ev.StartTime)
			continue
		}
		start = start.In(loc)
		if !fetcher.InWindow(start, from, until) {
			continue
		}

		var home, away string
		for _, team := range ev.Teams {
			switch team.Side {
			case "HOME":
				if home == "" {
					home = team.Name
				}
			case "AWAY":
				if away == "" {
					away = team.Name
				}
			}
		}
		if home == "" || away == "" {
			continue
		}

		var market models.Market
		found := false
		for _, m := range ev.Markets {
			if m.GroupCode != marketMatchResult || len(m.Outcomes) != 3 {
				continue
			}
			if market, found = matchResult(m.Outcomes); found {
				break
			}
		}
		if !found {
			continue
		}

		e := models.Event{
			Booker:  Name,
			EventID: string(ev.ID),
			Home:    home,
			Away:    away,
			Start:   start,
			Markets: map[string]models.Market{models.MarketMatchResult: market},
		}
		if ev.Type != nil {
			e.League = ev.Type.Name
		}
		out = append(out, e)
	}
	return out, nil
}

func matchResult(outcomes []outcome) (models.Market, bool) {
	var home, draw, away float64
	for _, o := range outcomes {
		if len(o.Prices) == 0 || o.Prices[0].Decimal == nil {
			continue
		}
		price := float64(*o.Prices[0].Decimal)
		switch o.SubType {
		case "H":
			home = price
		case "D":
			draw = price
		case "A":
			away = price
		}
	}
	if home <= 0 || draw <= 0 || away <= 0 {
		return models.Market{}, false
	}
	return models.NewMatchResultMarket(home, draw, away), true
}
