package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

var athens = time.FixedZone("EEST", 3*60*60)

func rawEvent(booker, home, away string, odds ...float64) models.Event {
	return models.Event{
		Booker:  booker,
		EventID: booker + "-1",
		Home:    home,
		Away:    away,
		Start:   time.Date(2026, 10, 18, 21, 30, 0, 0, athens),
		Markets: map[string]models.Market{
			models.MarketMatchResult: models.NewMatchResultMarket(odds[0], odds[1], odds[2]),
		},
	}
}

func TestWriteAndReadEvents(t *testing.T) {
	path := RawPath(filepath.Join(t.TempDir(), "raw"), "novibet")
	events := []models.Event{
		rawEvent("novibet", "Ολυμπιακός", "ΠΑΟΚ", 2.1, 3.3, 3.6),
		rawEvent("novibet", "AEK & Co", "Aris", 1.8, 3.5, 4.4),
	}
	require.NoError(t, WriteEvents(path, events))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ολυμπιακός", "non-ASCII must be written unescaped")
	assert.Contains(t, string(data), "AEK & Co")
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	got, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ολυμπιακός", got[0].Home)
	assert.True(t, got[0].Start.Equal(events[0].Start))
	_, offset := got[0].Start.Zone()
	assert.Equal(t, 3*60*60, offset)
	assert.Equal(t, 3.6, got[0].Markets[models.MarketMatchResult].Outcomes[models.OutcomeAway])
}

func TestReadEvents_SkipsMalformedAndInvalidLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bwin.ndjson")
	good := `{"booker":"bwin","event_id":null,"league":null,"home":"PAOK","away":"AEK","start":"2026-10-18T19:00:00+03:00","markets":{"1x2":{"key":"1x2","outcomes":{"1":2.2,"X":3.1,"2":3.4}}}}`
	lines := []string{
		good,
		`{"booker":"bwin","home":`,
		``,
		`{"booker":"bwin","home":"","away":"AEK","start":"2026-10-18T19:00:00+03:00","markets":{}}`,
		`{"booker":"bwin","home":"Aris","away":"OFI","start":"2026-10-18T19:00:00+03:00","markets":{"1x2":{"key":"1x2","outcomes":{"1":0.5}}}}`,
		good,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	got, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "", got[0].EventID)
	assert.Equal(t, "", got[0].League)
}

func TestReadEvents_MissingFile(t *testing.T) {
	got, err := ReadEvents(filepath.Join(t.TempDir(), "absent.ndjson"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteAndReadGroups(t *testing.T) {
	g := models.NewFixtureGroup(rawEvent("novibet", "Olympiacos", "PAOK", 2.1, 3.3, 3.6))
	require.True(t, g.Add(rawEvent("stoiximan", "Olympiakos", "PAOK FC", 2.0, 3.4, 3.9)))
	require.True(t, g.Add(rawEvent("fonbet", "Olympiacos Piraeus", "PAOK", 2.2, 3.2, 3.5)))

	path := filepath.Join(t.TempDir(), "matched", "purified_events.ndjson")
	require.NoError(t, WriteGroups(path, []*models.FixtureGroup{g}))

	got, err := ReadGroups(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"novibet", "stoiximan", "fonbet"}, got[0].Bookmakers())
	ev, ok := got[0].Event("fonbet")
	require.True(t, ok)
	assert.Equal(t, "Olympiacos Piraeus", ev.Home)
}

func TestWriteAndReadOpportunities(t *testing.T) {
	opps := []models.Opportunity{{
		Home:  "Olympiacos",
		Away:  "PAOK",
		Start: time.Date(2026, 10, 18, 21, 30, 0, 0, athens),
		BestOdds: models.BestOdds{
			models.OutcomeHome: {Odds: 2.1, Bookmaker: "novibet"},
			models.OutcomeDraw: {Odds: 4.0, Bookmaker: "stoiximan"},
			models.OutcomeAway: {Odds: 4.5, Bookmaker: "fonbet"},
		},
		ArbitragePercentage: 5.44,
		TotalInverse:        0.9484,
		TotalStake:          1000,
		Profit:              54.4,
		UniqueBookmakers:    3,
		IsExecutable:        true,
	}}
	path := filepath.Join(t.TempDir(), "opportunities.ndjson")
	require.NoError(t, WriteOpportunities(path, opps))

	got, err := ReadOpportunities(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stoiximan", got[0].BestOdds[models.OutcomeDraw].Bookmaker)
	assert.InDelta(t, 5.44, got[0].ArbitragePercentage, 1e-9)
}

func TestWriteEvents_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fonbet.ndjson")
	require.NoError(t, WriteEvents(path, []models.Event{
		rawEvent("fonbet", "A", "B", 2, 3, 4),
		rawEvent("fonbet", "C", "D", 2, 3, 4),
	}))
	require.NoError(t, WriteEvents(path, []models.Event{rawEvent("fonbet", "E", "F", 2, 3, 4)}))

	got, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "E", got[0].Home)
}

func TestListRaw(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"stoiximan.ndjson", "novibet.ndjson", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.ndjson"), 0o755))

	names, err := ListRaw(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"novibet", "stoiximan"}, names)

	names, err = ListRaw(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
