package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/surebet/internal/pkg/models"
	"github.com/Vodeneev/surebet/internal/pkg/storage"
)

const maxLimit = 1000

// Options wires optional collaborators into the handler.
type Options struct {
	Service string
	// History serves /opportunities?source=db. Nil disables it.
	History storage.OpportunityStorage
	// Trigger requests an extra pipeline cycle and reports whether it was queued. Nil disables /run.
	Trigger func() bool
}

type handler struct {
	store *Store
	opts  Options
}

// NewHandler returns the HTTP API over the cycle store.
func NewHandler(store *Store, opts Options) http.Handler {
	h := &handler{store: store, opts: opts}
	mux := http.NewServeMux()

	mux.HandleFunc("/ping", handlePing)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/metrics", h.handleMetrics)
	mux.HandleFunc("/opportunities", h.handleOpportunities)
	mux.HandleFunc("/fixtures", h.handleFixtures)
	mux.HandleFunc("/run", h.handleRun)
	return mux
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// parseLimit reads ?limit=; missing means def, values above maxLimit are clamped.
func parseLimit(r *http.Request, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", v)
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

// handleOpportunities serves the latest cycle, or the SQL history with ?source=db.
func (h *handler) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := parseLimit(r, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("source") == "db" {
		if h.opts.History == nil {
			writeError(w, http.StatusNotFound, "opportunity storage is not configured")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		rows, err := h.opts.History.RecentOpportunities(ctx, limit)
		if err != nil {
			slog.Error("Failed to load opportunity history", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load opportunities")
			return
		}
		w.Header().Set("X-Source", "db")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"opportunities": rows,
			"meta":          map[string]interface{}{"count": len(rows), "duration": time.Since(start).String()},
		})
		return
	}

	cycle, _ := h.store.Latest()
	opps := cycle.Opportunities
	if len(opps) > limit {
		opps = opps[:limit]
	}
	if opps == nil {
		opps = []models.Opportunity{}
	}
	w.Header().Set("X-Source", "memory")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": opps,
		"meta": map[string]interface{}{
			"count":    len(opps),
			"total":    len(cycle.Opportunities),
			"run_id":   cycle.RunID,
			"duration": time.Since(start).String(),
		},
	})
}

// handleFixtures returns purified fixtures of the latest cycle; ?name= filters by
// a case-insensitive substring of home, away or "home vs away".
func (h *handler) handleFixtures(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))

	cycle, _ := h.store.Latest()
	out := make([]*models.FixtureGroup, 0)
	for _, g := range cycle.Groups {
		if len(out) == limit {
			break
		}
		if q != "" {
			home, away := strings.ToLower(g.Home), strings.ToLower(g.Away)
			if !strings.Contains(home, q) && !strings.Contains(away, q) && !strings.Contains(home+" vs "+away, q) {
				continue
			}
		}
		out = append(out, g)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fixtures": out,
		"meta":     map[string]interface{}{"count": len(out), "run_id": cycle.RunID},
	})
}

func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.opts.Trigger == nil {
		writeError(w, http.StatusNotFound, "manual runs are not enabled")
		return
	}
	queued := h.opts.Trigger()
	slog.Info("Manual run requested", "service", h.opts.Service, "queued", queued)
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
