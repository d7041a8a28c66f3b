package pamestoixima

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

func setup(t *testing.T) ([]byte, time.Time, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)
	data, err := os.ReadFile("testdata/events_new.json")
	require.NoError(t, err)
	return data, time.Date(2026, 10, 18, 11, 0, 0, 0, loc), loc
}

func TestExtract(t *testing.T) {
	data, now, loc := setup(t)
	events, err := Extract(data, now, loc)
	require.NoError(t, err)
	// 9003 has no home price, 9004 starts after 03:00 tomorrow and 9005 has no away team.
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "pamestoixima", first.Booker)
	assert.Equal(t, "9001", first.EventID)
	assert.Equal(t, "Ελλάδα - Super League", first.League)
	assert.Equal(t, "Παναθηναϊκός", first.Home)
	assert.True(t, first.Start.Equal(time.Date(2026, 10, 18, 19, 0, 0, 0, loc)))
	assert.Equal(t, map[string]float64{"1": 1.62, "X": 3.9, "2": 5.5}, first.Markets[models.MarketMatchResult].Outcomes,
		"the first price of each outcome is used and other market groups are ignored")

	second := events[1]
	assert.Equal(t, "Άρης", second.Home)
	assert.Equal(t, "Βόλος", second.Away)
	assert.Equal(t, "", second.League)
}

func TestExtractAll_DedupesRepeatedResponses(t *testing.T) {
	data, now, loc := setup(t)
	events := ExtractAll([][]byte{data, []byte("[]"), data}, now, loc)
	assert.Len(t, events, 2)
}
