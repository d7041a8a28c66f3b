package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// FixtureGroup is one real-world fixture matched across bookmakers.
// Display labels come verbatim from the first contributing event.
type FixtureGroup struct {
	Home   string
	Away   string
	League string

	events []Event
	index  map[string]int
}

// NewFixtureGroup seeds a group with its first event.
func NewFixtureGroup(seed Event) *FixtureGroup {
	g := &FixtureGroup{
		Home:   seed.Home,
		Away:   seed.Away,
		League: seed.League,
		index:  map[string]int{},
	}
	g.Add(seed)
	return g
}

// Add appends an event. A bookmaker contributes at most once; a second event is rejected.
func (g *FixtureGroup) Add(ev Event) bool {
	if g.index == nil {
		g.index = map[string]int{}
	}
	if _, ok := g.index[ev.Booker]; ok {
		return false
	}
	g.index[ev.Booker] = len(g.events)
	g.events = append(g.events, ev)
	return true
}

// Coverage is the number of distinct bookmakers in the group.
func (g *FixtureGroup) Coverage() int {
	return len(g.events)
}

// Bookmakers returns bookmaker names in contribution order.
func (g *FixtureGroup) Bookmakers() []string {
	out := make([]string, len(g.events))
	for i, ev := range g.events {
		out[i] = ev.Booker
	}
	return out
}

// Events returns contributions in order. The slice must not be modified.
func (g *FixtureGroup) Events() []Event {
	return g.events
}

// Event returns the contribution of a bookmaker.
func (g *FixtureGroup) Event(bookmaker string) (Event, bool) {
	i, ok := g.index[bookmaker]
	if !ok {
		return Event{}, false
	}
	return g.events[i], true
}

// Start is the start time of the first contribution.
func (g *FixtureGroup) Start() time.Time {
	if len(g.events) == 0 {
		return time.Time{}
	}
	return g.events[0].Start
}

// HasCompleteMatchResult reports whether every contribution quotes 1, X and 2.
func (g *FixtureGroup) HasCompleteMatchResult() bool {
	for _, ev := range g.events {
		m, ok := ev.MatchResult()
		if !ok || !m.Complete() {
			return false
		}
	}
	return true
}

// purifiedEventJSON is the per-bookmaker entry of a purified fixture record.
type purifiedEventJSON struct {
	EventID      *string                   `json:"event_id"`
	HomeOriginal string                    `json:"home_original"`
	AwayOriginal string                    `json:"away_original"`
	Start        time.Time                 `json:"start"`
	Markets      map[string]purifiedMarket `json:"markets"`
}

type purifiedMarket struct {
	Outcomes map[string]float64 `json:"outcomes"`
}

// MarshalJSON writes the purified fixture record. Events keep contribution order.
func (g *FixtureGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"home":`)
	if err := writeJSON(&buf, g.Home); err != nil {
		return nil, err
	}
	buf.WriteString(`,"away":`)
	if err := writeJSON(&buf, g.Away); err != nil {
		return nil, err
	}
	buf.WriteString(`,"league":`)
	if err := writeJSON(&buf, optional(g.League)); err != nil {
		return nil, err
	}
	buf.WriteString(`,"bookmakers":`)
	if err := writeJSON(&buf, g.Bookmakers()); err != nil {
		return nil, err
	}
	buf.WriteString(`,"events":{`)
	for i, ev := range g.events {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, ev.Booker); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		markets := make(map[string]purifiedMarket, len(ev.Markets))
		for k, m := range ev.Markets {
			markets[k] = purifiedMarket{Outcomes: m.Outcomes}
		}
		entry := purifiedEventJSON{
			EventID:      optional(ev.EventID),
			HomeOriginal: ev.Home,
			AwayOriginal: ev.Away,
			Start:        ev.Start,
			Markets:      markets,
		}
		if err := writeJSON(&buf, entry); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a purified fixture record. Contribution order follows "bookmakers";
// events missing from that list are appended in name order.
func (g *FixtureGroup) UnmarshalJSON(data []byte) error {
	var raw struct {
		Home       string                       `json:"home"`
		Away       string                       `json:"away"`
		League     *string                      `json:"league"`
		Bookmakers []string                     `json:"bookmakers"`
		Events     map[string]purifiedEventJSON `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	order := make([]string, 0, len(raw.Events))
	seen := make(map[string]bool, len(raw.Events))
	for _, b := range raw.Bookmakers {
		if _, ok := raw.Events[b]; ok && !seen[b] {
			order = append(order, b)
			seen[b] = true
		}
	}
	var rest []string
	for b := range raw.Events {
		if !seen[b] {
			rest = append(rest, b)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	*g = FixtureGroup{
		Home:   raw.Home,
		Away:   raw.Away,
		League: deref(raw.League),
		index:  map[string]int{},
	}
	for _, b := range order {
		pe := raw.Events[b]
		markets := make(map[string]Market, len(pe.Markets))
		for k, m := range pe.Markets {
			markets[k] = Market{Key: k, Outcomes: m.Outcomes}
		}
		g.Add(Event{
			Booker:  b,
			EventID: deref(pe.EventID),
			League:  g.League,
			Home:    pe.HomeOriginal,
			Away:    pe.AwayOriginal,
			Start:   pe.Start,
			Markets: markets,
		})
	}
	return nil
}

// writeJSON encodes v without HTML escaping so non-ASCII and "&" stay readable.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
