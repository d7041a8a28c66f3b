package storage

import (
	"context"
	"time"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// OpportunityStorage interface for persisting detected opportunities across runs
type OpportunityStorage interface {
	// SaveOpportunities appends a run's opportunities and returns the rows written
	SaveOpportunities(ctx context.Context, runID string, opps []models.Opportunity) (int, error)

	// RecentOpportunities returns the latest stored opportunities
	RecentOpportunities(ctx context.Context, limit int) ([]StoredOpportunity, error)

	// Close closes the database connection
	Close() error
}

// StoredOpportunity is an opportunity row together with the run that produced it.
type StoredOpportunity struct {
	models.Opportunity
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}
