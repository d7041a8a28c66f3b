package fetcher

import (
	"log/slog"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// MergeByID extracts every captured body and keeps the first event per id, in arrival order.
// Bodies that fail to decode are skipped with a warning.
func MergeByID(source string, bodies [][]byte, extract func([]byte) ([]models.Event, error)) []models.Event {
	var out []models.Event
	seen := map[string]bool{}
	for i, body := range bodies {
		events, err := extract(body)
		if err != nil {
			slog.Warn("Skipping undecodable response", "source", source, "index", i, "error", err)
			continue
		}
		for _, ev := range events {
			if seen[ev.EventID] {
				continue
			}
			seen[ev.EventID] = true
			out = append(out, ev)
		}
	}
	return out
}
