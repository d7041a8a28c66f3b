package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MarketMatchResult is the three-way home/draw/away market key.
const MarketMatchResult = "1x2"

// Match result outcome codes.
const (
	OutcomeHome = "1"
	OutcomeDraw = "X"
	OutcomeAway = "2"
)

// MatchResultOutcomes lists the match result codes in their canonical order.
var MatchResultOutcomes = [3]string{OutcomeHome, OutcomeDraw, OutcomeAway}

// Market holds the odds a bookmaker quotes for one market.
type Market struct {
	Key      string             `json:"key"`
	Outcomes map[string]float64 `json:"outcomes"` // {"1": 2.10, "X": 3.40, "2": 3.60}
}

// Complete reports whether the market quotes all three match result outcomes.
func (m Market) Complete() bool {
	for _, code := range MatchResultOutcomes {
		if _, ok := m.Outcomes[code]; !ok {
			return false
		}
	}
	return true
}

// Event is one bookmaker's quote for a fixture. Created by an acquisition source and never mutated.
type Event struct {
	Booker  string            `json:"booker"`
	EventID string            `json:"event_id"`
	League  string            `json:"league"`
	Home    string            `json:"home"`
	Away    string            `json:"away"`
	Start   time.Time         `json:"start"`
	Markets map[string]Market `json:"markets"`
}

// eventJSON is the persisted shape; optional fields are written as null when empty.
type eventJSON struct {
	Booker  string            `json:"booker"`
	EventID *string           `json:"event_id"`
	League  *string           `json:"league"`
	Home    string            `json:"home"`
	Away    string            `json:"away"`
	Start   time.Time         `json:"start"`
	Markets map[string]Market `json:"markets"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := writeJSON(&buf, eventJSON{
		Booker:  e.Booker,
		EventID: optional(e.EventID),
		League:  optional(e.League),
		Home:    e.Home,
		Away:    e.Away,
		Start:   e.Start,
		Markets: e.Markets,
	})
	return buf.Bytes(), err
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event{
		Booker:  raw.Booker,
		EventID: deref(raw.EventID),
		League:  deref(raw.League),
		Home:    raw.Home,
		Away:    raw.Away,
		Start:   raw.Start,
		Markets: raw.Markets,
	}
	return nil
}

// MatchResult returns the 1x2 market if the event carries one.
func (e Event) MatchResult() (Market, bool) {
	m, ok := e.Markets[MarketMatchResult]
	return m, ok
}

// Name returns "Home vs Away" for logs.
func (e Event) Name() string {
	return strings.TrimSpace(e.Home) + " vs " + strings.TrimSpace(e.Away)
}

// ErrInvalidEvent is wrapped by every Validate failure.
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks the invariants every persisted event must satisfy.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Booker) == "" {
		return fmt.Errorf("%w: empty booker", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Home) == "" || strings.TrimSpace(e.Away) == "" {
		return fmt.Errorf("%w: empty team name (home=%q away=%q)", ErrInvalidEvent, e.Home, e.Away)
	}
	if e.Start.IsZero() {
		return fmt.Errorf("%w: missing start time for %s", ErrInvalidEvent, e.Name())
	}
	for key, m := range e.Markets {
		for code, odd := range m.Outcomes {
			if math.IsNaN(odd) || math.IsInf(odd, 0) || odd < 1.0 {
				return fmt.Errorf("%w: market %s outcome %s has odds %v", ErrInvalidEvent, key, code, odd)
			}
			if key == MarketMatchResult && code != OutcomeHome && code != OutcomeDraw && code != OutcomeAway {
				return fmt.Errorf("%w: unknown 1x2 outcome %q", ErrInvalidEvent, code)
			}
		}
	}
	return nil
}

// NewMatchResultMarket builds a 1x2 market from the three prices, skipping non-positive ones.
func NewMatchResultMarket(home, draw, away float64) Market {
	outcomes := make(map[string]float64, 3)
	for i, v := range [3]float64{home, draw, away} {
		if v > 0 {
			outcomes[MatchResultOutcomes[i]] = v
		}
	}
	return Market{Key: MarketMatchResult, Outcomes: outcomes}
}
