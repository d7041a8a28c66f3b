package stoiximan

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

func TestExtract_InitialState(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)
	payload, err := os.ReadFile("testdata/initial_state.json")
	require.NoError(t, err)

	events, err := Extract(payload, time.Date(2026, 10, 18, 10, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	require.Len(t, events, 2)

	derby := events[0]
	assert.Equal(t, "stoiximan", derby.Booker)
	assert.Equal(t, "61234567", derby.EventID)
	assert.Equal(t, "Ελλάδα - Super League", derby.League)
	assert.Equal(t, "Ολυμπιακός", derby.Home)
	assert.Equal(t, "ΠΑΟΚ", derby.Away)
	assert.True(t, derby.Start.Equal(time.Date(2026, 10, 18, 20, 0, 0, 0, loc)))
	assert.Equal(t, map[string]float64{"1": 2.05, "X": 3.45, "2": 3.7}, derby.Markets[models.MarketMatchResult].Outcomes)

	// No "Home - Away" short name: teams come from the first and third selections.
	aris := events[1]
	assert.Equal(t, "61234568", aris.EventID)
	assert.Equal(t, "Άρης", aris.Home)
	assert.Equal(t, "Βόλος", aris.Away)
	assert.Equal(t, map[string]float64{"1": 1.95, "2": 4.1}, aris.Markets[models.MarketMatchResult].Outcomes)
}

func TestExtract_SplitsOnFirstSeparator(t *testing.T) {
	loc := time.UTC
	payload := []byte(`{"data": {"blocks": [{"name": "Cup", "events": [{"id": 1, "shortName": "Vitoria - Guimaraes - B", "startTime": 1792328400000,
		"markets": [{"type": "MRES", "selections": [{"name": "1", "price": 2}, {"name": "X", "price": 3}, {"name": "2", "price": 4}]}]}]}]}}`)

	events, err := Extract(payload, time.Date(2026, 10, 18, 0, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Vitoria", events[0].Home)
	assert.Equal(t, "Guimaraes - B", events[0].Away)
}

func TestExtract_Malformed(t *testing.T) {
	_, err := Extract([]byte(`{"data": {"blocks": "x"}}`), time.Now(), time.UTC)
	assert.Error(t, err)

	events, err := Extract([]byte(`{}`), time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, events)
}
