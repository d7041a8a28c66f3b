package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Ensure SQLOpportunityStorage implements OpportunityStorage
var _ OpportunityStorage = (*SQLOpportunityStorage)(nil)

// SQLOpportunityStorage appends detected opportunities to an SQL table, one row per opportunity and run.
type SQLOpportunityStorage struct {
	db     *sql.DB
	driver string
}

// NewSQLOpportunityStorage opens the database, checks the connection and creates the schema.
func NewSQLOpportunityStorage(ctx context.Context, driver, dsn string) (*SQLOpportunityStorage, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s DSN is required", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if driver == DriverSQLite {
		// single writer; also keeps ":memory:" on one connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	s := &SQLOpportunityStorage{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("Opportunity storage initialized", "driver", driver)
	return s, nil
}

func (s *SQLOpportunityStorage) initSchema(ctx context.Context) error {
	id := "id SERIAL PRIMARY KEY"
	now := "NOW()"
	if s.driver == DriverSQLite {
		id = "id INTEGER PRIMARY KEY AUTOINCREMENT"
		now = "CURRENT_TIMESTAMP"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS opportunities (
		` + id + `,
		run_id VARCHAR(36) NOT NULL,
		home VARCHAR(255) NOT NULL,
		away VARCHAR(255) NOT NULL,
		start_time TIMESTAMP NOT NULL,
		bookmakers TEXT NOT NULL,
		odds_home DECIMAL(10, 4) NOT NULL,
		bookmaker_home VARCHAR(100) NOT NULL,
		odds_draw DECIMAL(10, 4) NOT NULL,
		bookmaker_draw VARCHAR(100) NOT NULL,
		odds_away DECIMAL(10, 4) NOT NULL,
		bookmaker_away VARCHAR(100) NOT NULL,
		arbitrage_percentage DECIMAL(10, 4) NOT NULL,
		total_inverse DECIMAL(10, 4) NOT NULL,
		total_stake DECIMAL(12, 2) NOT NULL,
		stake_distribution TEXT NOT NULL,
		profit DECIMAL(12, 2) NOT NULL,
		unique_bookmakers INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT ` + now + `
	)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_run_id ON opportunities(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_created_at ON opportunities(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_percentage ON opportunities(arbitrage_percentage DESC)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *SQLOpportunityStorage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveOpportunities appends opportunities under runID in one transaction and returns the rows written.
func (s *SQLOpportunityStorage) SaveOpportunities(ctx context.Context, runID string, opps []models.Opportunity) (int, error) {
	if len(opps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
	INSERT INTO opportunities (
		run_id, home, away, start_time, bookmakers,
		odds_home, bookmaker_home, odds_draw, bookmaker_draw, odds_away, bookmaker_away,
		arbitrage_percentage, total_inverse, total_stake, stake_distribution, profit,
		unique_bookmakers, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC()
	for _, o := range opps {
		bookmakers, err := json.Marshal(o.Bookmakers)
		if err != nil {
			return 0, fmt.Errorf("failed to encode bookmakers for %s: %w", o.Name(), err)
		}
		stakes, err := json.Marshal(o.StakeDistribution)
		if err != nil {
			return 0, fmt.Errorf("failed to encode stakes for %s: %w", o.Name(), err)
		}
		home := o.BestOdds[models.OutcomeHome]
		draw := o.BestOdds[models.OutcomeDraw]
		away := o.BestOdds[models.OutcomeAway]

		if _, err := stmt.ExecContext(ctx,
			runID,
			o.Home,
			o.Away,
			o.Start.UTC(),
			string(bookmakers),
			home.Odds, home.Bookmaker,
			draw.Odds, draw.Bookmaker,
			away.Odds, away.Bookmaker,
			o.ArbitragePercentage,
			o.TotalInverse,
			o.TotalStake,
			string(stakes),
			o.Profit,
			o.UniqueBookmakers,
			createdAt,
		); err != nil {
			return 0, fmt.Errorf("failed to store opportunity %s: %w", o.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit opportunities: %w", err)
	}
	return len(opps), nil
}

// RecentOpportunities returns the latest rows, newest run first and best percentage first within a run.
func (s *SQLOpportunityStorage) RecentOpportunities(ctx context.Context, limit int) ([]StoredOpportunity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
	SELECT run_id, home, away, start_time, bookmakers,
		odds_home, bookmaker_home, odds_draw, bookmaker_draw, odds_away, bookmaker_away,
		arbitrage_percentage, total_inverse, total_stake, stake_distribution, profit,
		unique_bookmakers, created_at
	FROM opportunities
	ORDER BY created_at DESC, arbitrage_percentage DESC, id ASC
	LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var out []StoredOpportunity
	for rows.Next() {
		var (
			so                 StoredOpportunity
			bookmakers, stakes string
			home, draw, away   models.OddsPick
		)
		if err := rows.Scan(
			&so.RunID, &so.Home, &so.Away, &so.Start, &bookmakers,
			&home.Odds, &home.Bookmaker, &draw.Odds, &draw.Bookmaker, &away.Odds, &away.Bookmaker,
			&so.ArbitragePercentage, &so.TotalInverse, &so.TotalStake, &stakes, &so.Profit,
			&so.UniqueBookmakers, &so.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		if err := json.Unmarshal([]byte(bookmakers), &so.Bookmakers); err != nil {
			return nil, fmt.Errorf("failed to decode bookmakers: %w", err)
		}
		if err := json.Unmarshal([]byte(stakes), &so.StakeDistribution); err != nil {
			return nil, fmt.Errorf("failed to decode stakes: %w", err)
		}
		so.BestOdds = models.BestOdds{
			models.OutcomeHome: home,
			models.OutcomeDraw: draw,
			models.OutcomeAway: away,
		}
		so.IsExecutable = so.UniqueBookmakers >= 2
		out = append(out, so)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate opportunities: %w", err)
	}
	return out, nil
}

// CountByRun returns the number of rows stored for a run.
func (s *SQLOpportunityStorage) CountByRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM opportunities WHERE run_id = ?`), runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLOpportunityStorage) Close() error {
	return s.db.Close()
}
