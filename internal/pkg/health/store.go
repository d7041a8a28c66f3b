package health

import (
	"sync"
	"time"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// Cycle is the result of one pipeline run as served over HTTP.
type Cycle struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	Events        map[string]int // raw events per bookmaker
	Groups        []*models.FixtureGroup
	Opportunities []models.Opportunity
	Err           error
}

// Stats summarises the cycles seen since start.
type Stats struct {
	Cycles        int       `json:"cycles"`
	Failures      int       `json:"failures"`
	LastRunID     string    `json:"last_run_id,omitempty"`
	LastStartedAt time.Time `json:"last_started_at,omitempty"`
	LastDuration  string    `json:"last_duration,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	Events        int       `json:"events"`
	Fixtures      int       `json:"fixtures"`
	Opportunities int       `json:"opportunities"`
}

// Store keeps the latest successful cycle in memory for fast API access.
// A failed cycle is counted but does not replace the data served.
type Store struct {
	mu       sync.RWMutex
	latest   *Cycle
	cycles   int
	failures int
	lastErr  error
	lastRun  string
}

func NewStore() *Store {
	return &Store{}
}

// Publish records a finished cycle.
func (s *Store) Publish(c Cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.lastRun = c.RunID
	s.lastErr = c.Err
	if c.Err != nil {
		s.failures++
		return
	}
	cp := c
	s.latest = &cp
}

// Latest returns the last successful cycle.
func (s *Store) Latest() (Cycle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Cycle{}, false
	}
	return *s.latest, true
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Cycles: s.cycles, Failures: s.failures, LastRunID: s.lastRun}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.latest != nil {
		st.LastStartedAt = s.latest.StartedAt
		st.LastDuration = s.latest.Duration.String()
		for _, n := range s.latest.Events {
			st.Events += n
		}
		st.Fixtures = len(s.latest.Groups)
		st.Opportunities = len(s.latest.Opportunities)
	}
	return st
}
