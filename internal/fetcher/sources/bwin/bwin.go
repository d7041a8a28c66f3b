// Package bwin reads the fixtures the bwin.gr "today's matches" coupon loads from cds-api.
package bwin

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
	Name      = "bwin"
	CouponURL = "https://www.bwin.gr/el/sports/%CF%80%CE%BF%CE%B4%CF%8C%CF%83%CF%86%CE%B1%CE%B9%CF%81%CE%BF-4/%CE%BA%CE%BF%CF%85%CF%80%CF%8C%CE%BD%CE%B9%CE%B1/%CF%83%CE%B7%CE%BC%CE%B5%CF%81%CE%B9%CE%BD%CE%BF%CE%AF-%CE%B1%CE%B3%CF%8E%CE%BD%CE%B5%CF%82-1"
	APIPrefix = "https://www.bwin.gr/cds-api/coupons/fixtures"

	showMore    = "ms-grid-show-more"
	maxShowMore = 50
)

func init() {
	fetcher.Register(Name, func(cfg *config.Config) fetcher.Source {
		return New(fetcher.NewBrowser(cfg.Fetcher), cfg.Fetcher.Location())
	})
}

type Source struct {
	browser *fetcher.Browser
	loc     *time.Location
}

func New(browser *fetcher.Browser, loc *time.Location) *Source {
	return &Source{browser: browser, loc: loc}
}

func (s *Source) Name() string { return Name }

// FetchToday pages through the coupon with "show more" and merges every fixtures response.
func (s *Source) FetchToday(ctx context.Context) ([]models.Event, error) {
	bodies, err := s.browser.CaptureJSON(ctx, CouponURL, fetcher.CaptureOptions{
		Match:   func(url string) bool { return strings.HasPrefix(url, APIPrefix) },
		Settle:  5 * time.Second,
		Actions: []chromedp.Action{fetcher.ClickWhileVisible(showMore, maxShowMore, 2*time.Second)},
	})
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("did not capture any coupons response from %s", CouponURL)
	}
	return ExtractAll(bodies, s.loc), nil
}

type label struct {
	Value string `json:"value"`
}

type option struct {
	Name       label `json:"name"`
	SourceName label `json:"sourceName"`
	Price      struct {
		Odds *fetcher.FlexFloat `json:"odds"`
	} `json:"price"`
}

type fixture struct {
	ID           fetcher.FlexString `json:"id"`
	StartDate    string             `json:"startDate"`
	Participants []struct {
		Name label `json:"name"`
	} `json:"participants"`
	Competition *struct {
		Name label `json:"name"`
	} `json:"competition"`
	OptionMarkets []struct {
		IsMain  bool     `json:"isMain"`
		Options []option `json:"options"`
	} `json:"optionMarkets"`
}

type couponResponse struct {
	FixturePage struct {
		Fixtures []fixture `json:"fixtures"`
	} `json:"fixturePage"`
}

// ExtractAll merges coupon responses, keeping the first fixture per id.
func ExtractAll(bodies [][]byte, loc *time.Location) []models.Event {
	return fetcher.MergeByID(Name, bodies, func(body []byte) ([]models.Event, error) {
		return Extract(body, loc)
	})
}

// Extract converts one coupon response. The coupon only lists today's fixtures, so no
// date filter is applied. Fixtures without a complete main 1X2 market are skipped.
func Extract(payload []byte, loc *time.Location) ([]models.Event, error) {
	var resp couponResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode bwin coupon: %w", err)
	}

	var out []models.Event
	for _, fx := range resp.FixturePage.Fixtures {
		start, err := fetcher.ParseTimestamp(fx.StartDate)
		if err != nil {
			slog.Debug("bwin: bad start time", "fixture", string(fx.ID), "value", fx.StartDate)
			continue
		}
		if len(fx.Participants) < 2 {
			continue
		}
		home := fx.Participants[0].Name.Value
		away := fx.Participants[1].Name.Value
		if home == "" || away == "" {
			continue
		}

		market, ok := mainMatchResult(fx)
		if !ok {
			continue
		}

		ev := models.Event{
			Booker:  Name,
			EventID: string(fx.ID),
			Home:    home,
			Away:    away,
			Start:   start.In(loc),
			Markets: map[string]models.Market{models.MarketMatchResult: market},
		}
		if fx.Competition != nil {
			ev.League = fx.Competition.Name.Value
		}
		out = append(out, ev)
	}
	return out, nil
}

// mainMatchResult returns the first main market with exactly three priced options mapping to 1, X and 2.
func mainMatchResult(fx fixture) (models.Market, bool) {
	for _, m := range fx.OptionMarkets {
		if !m.IsMain || len(m.Options) != 3 {
			continue
		}
		var home, draw, away float64
		for _, o := range m.Options {
			if o.Price.Odds == nil {
				continue
			}
			odds := float64(*o.Price.Odds)
			switch {
			case o.SourceName.Value == models.OutcomeHome:
				home = odds
			case o.SourceName.Value == models.OutcomeAway:
				away = odds
			case strings.Contains(o.Name.Value, models.OutcomeDraw):
				draw = odds
			}
		}
		if home > 0 && draw > 0 && away > 0 {
			return models.NewMatchResultMarket(home, draw, away), true
		}
	}
	return models.Market{}, false
}
