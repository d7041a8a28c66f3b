// Package stoiximan reads today's coupon from the state object stoiximan.gr embeds in the page.
package stoiximan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const (
	Name      = "stoiximan"
	CouponURL = "https://www.stoiximan.gr/sport/podosfairo/kouponi-agones-simera/"

	stateGlobal       = "initial_state"
	matchResultMarket = "MRES"
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
	state, err := s.browser.EvaluateGlobal(ctx, CouponURL, stateGlobal, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return Extract(state, s.now(), s.loc)
}

type selection struct {
	Name     string             `json:"name"`
	FullName string             `json:"fullName"`
	Price    *fetcher.FlexFloat `json:"price"`
}

type market struct {
	Type       string      `json:"type"`
	Selections []selection `json:"selections"`
}

type event struct {
	ID        fetcher.FlexString `json:"id"`
	ShortName string             `json:"shortName"`
	Name      string             `json:"name"`
	StartTime int64              `json:"startTime"` // epoch milliseconds
	Markets   []market           `json:"markets"`
}

type state struct {
	Data struct {
		Blocks []struct {
			Name   string  `json:"name"`
			Events []event `json:"events"`
		} `json:"blocks"`
	} `json:"data"`
}

// Extract converts the page state into events starting today in loc.
func Extract(payload []byte, now time.Time, loc *time.Location) ([]models.Event, error) {
	var st state
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("failed to decode stoiximan state: %w", err)
	}

	var out []models.Event
	for _, block := range st.Data.Blocks {
		for _, ev := range block.Events {
			if ev.StartTime == 0 {
				continue
			}
			start := time.UnixMilli(ev.StartTime).In(loc)
			if !fetcher.SameDay(start, now, loc) {
				continue
			}

			var home, away string
			short := ev.ShortName
			if short == "" {
				short = ev.Name
			}
			if h, a, ok := strings.Cut(short, " - "); ok {
				home, away = h, a
			}

			var result *market
			for i := range ev.Markets {
				if ev.Markets[i].Type == matchResultMarket {
					result = &ev.Markets[i]
					break
				}
			}
			if result == nil {
				continue
			}
			if (home == "" || away == "") && len(result.Selections) >= 3 {
				if home == "" {
					home = result.Selections[0].FullName
				}
				if away == "" {
					away = result.Selections[2].FullName
				}
			}
			if home == "" || away == "" {
				continue
			}

			outcomes := map[string]float64{}
			for _, sel := range result.Selections {
				switch sel.Name {
				case models.OutcomeHome, models.OutcomeDraw, models.OutcomeAway:
					if sel.Price != nil && *sel.Price > 0 {
						outcomes[sel.Name] = float64(*sel.Price)
					}
				}
			}
			if len(outcomes) == 0 {
				continue
			}

			out = append(out, models.Event{
				Booker:  Name,
				EventID: string(ev.ID),
				League:  block.Name,
				Home:    home,
				Away:    away,
				Start:   start,
				Markets: map[string]models.Market{
					models.MarketMatchResult: {Key: models.MarketMatchResult, Outcomes: outcomes},
				},
			})
		}
	}
	return out, nil
}
