// Package novibet reads today's football coupon from novibet.gr by capturing the
// marketviews feed the coupon page loads.
package novibet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const (
	Name       = "novibet"
	CouponPage = "https://www.novibet.gr/stoixima/podosfairo/4372606/coupon"
	APIPrefix  = "https://www.novibet.gr/spt/feed/marketviews/location/v2/4324/5117425/0/"

	matchResultMarket = "SOCCER_MATCH_RESULT"
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
	bodies, err := s.browser.CaptureJSON(ctx, CouponPage, fetcher.CaptureOptions{
		Match:         func(url string) bool { return strings.HasPrefix(url, APIPrefix) },
		Settle:        4 * time.Second,
		Actions:       fetcher.Scroll(1, 100000, time.Second),
		ReloadIfEmpty: true,
	})
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("did not capture the marketviews feed from %s", CouponPage)
	}
	// The last feed response reflects the fully loaded coupon.
	return Extract(bodies[len(bodies)-1], s.now(), s.loc)
}

type betItem struct {
	Code  string            `json:"code"`
	Price fetcher.FlexFloat `json:"price"`
}

type market struct {
	BetTypeSysname string    `json:"betTypeSysname"`
	BetItems       []betItem `json:"betItems"`
}

type item struct {
	EventBetContextID  fetcher.FlexString `json:"eventBetContextId"`
	ID                 fetcher.FlexString `json:"id"`
	AdditionalCaptions struct {
		Competitor1 string `json:"competitor1"`
		Competitor2 string `json:"competitor2"`
	} `json:"additionalCaptions"`
	Home                      string   `json:"home"`
	HomeTeam                  string   `json:"homeTeam"`
	Away                      string   `json:"away"`
	AwayTeam                  string   `json:"awayTeam"`
	StartDateTime             string   `json:"startDateTime"`
	CompetitionCaption        string   `json:"competitionCaption"`
	CompetitionHistoryCaption string   `json:"competitionHistoryCaption"`
	Markets                   []market `json:"markets"`
}

type betView struct {
	Items []item `json:"items"`
}

type location struct {
	BetViews []betView `json:"betViews"`
}

type flatPayload struct {
	Items  []item `json:"items"`
	Events []item `json:"events"`
}

// decodeItems accepts the location list (items under betViews of the first entry) or a flat object.
func decodeItems(payload []byte) ([]item, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, nil
	}
	if payload[0] == '[' {
		var locations []location
		if err := json.Unmarshal(payload, &locations); err != nil {
			return nil, fmt.Errorf("failed to decode novibet feed: %w", err)
		}
		if len(locations) == 0 {
			return nil, nil
		}
		var items []item
		for _, bv := range locations[0].BetViews {
			items = append(items, bv.Items...)
		}
		return items, nil
	}
	var flat flatPayload
	if err := json.Unmarshal(payload, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode novibet feed: %w", err)
	}
	if len(flat.Items) > 0 {
		return flat.Items, nil
	}
	return flat.Events, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Extract converts a captured feed into events starting today in loc.
func Extract(payload []byte, now time.Time, loc *time.Location) ([]models.Event, error) {
	items, err := decodeItems(payload)
	if err != nil {
		return nil, err
	}

	var out []models.Event
	for _, it := range items {
		home := firstNonEmpty(it.AdditionalCaptions.Competitor1, it.Home, it.HomeTeam)
		away := firstNonEmpty(it.AdditionalCaptions.Competitor2, it.Away, it.AwayTeam)
		if home == "" || away == "" || it.StartDateTime == "" {
			continue
		}
		start, err := fetcher.ParseTimestamp(it.StartDateTime)
		if err != nil {
			slog.Debug("novibet: bad start time", "event", home+" vs "+away, "value", it.StartDateTime)
			continue
		}
		start = start.In(loc)
		if !fetcher.SameDay(start, now, loc) {
			continue
		}

		var result *market
		for i := range it.Markets {
			if it.Markets[i].BetTypeSysname == matchResultMarket {
				result = &it.Markets[i]
				break
			}
		}
		if result == nil {
			continue
		}
		outcomes := map[string]float64{}
		for _, bi := range result.BetItems {
			switch bi.Code {
			case models.OutcomeHome, models.OutcomeDraw, models.OutcomeAway:
				if bi.Price > 0 {
					outcomes[bi.Code] = float64(bi.Price)
				}
			}
		}
		if len(outcomes) == 0 {
			continue
		}

		out = append(out, models.Event{
			Booker:  Name,
			EventID: string(firstNonEmptyID(it.EventBetContextID, it.ID)),
			League:  firstNonEmpty(it.CompetitionCaption, it.CompetitionHistoryCaption),
			Home:    home,
			Away:    away,
			Start:   start,
			Markets: map[string]models.Market{
				models.MarketMatchResult: {Key: models.MarketMatchResult, Outcomes: outcomes},
			},
		})
	}
	return out, nil
}

func firstNonEmptyID(ids ...fetcher.FlexString) fetcher.FlexString {
	for _, id := range ids {
		if id != "" && id != "0" {
			return id
		}
	}
	return ""
}
