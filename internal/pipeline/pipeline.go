// Package pipeline runs one scan cycle: fetch, purify, detect, persist and notify.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/surebet/internal/calculator"
	"github.com/Vodeneev/surebet/internal/fetcher"
	"github.com/Vodeneev/surebet/internal/matcher"
	"github.com/Vodeneev/surebet/internal/notify"
	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/health"
	"github.com/Vodeneev/surebet/internal/pkg/models"
	"github.com/Vodeneev/surebet/internal/pkg/storage"
	"github.com/Vodeneev/surebet/internal/report"
)

const (
	PurifiedFile      = "purified_events" + storage.Extension
	OpportunitiesFile = "opportunities" + storage.Extension
)

// Pipeline holds the collaborators of a cycle. Every collaborator is optional.
type Pipeline struct {
	cfg       *config.Config
	sources   []fetcher.Source
	notifiers []notify.Notifier
	sink      storage.OpportunityStorage
	report    *report.Writer
	store     *health.Store
	newRunID  func() string
}

type Option func(*Pipeline)

// WithSources enables the fetch stage. Without sources the cycle reads whatever raw files exist.
func WithSources(sources ...fetcher.Source) Option {
	return func(p *Pipeline) { p.sources = sources }
}

func WithNotifiers(notifiers ...notify.Notifier) Option {
	return func(p *Pipeline) { p.notifiers = notifiers }
}

func WithSink(sink storage.OpportunityStorage) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithReport prints console summaries to out.
func WithReport(out io.Writer) Option {
	return func(p *Pipeline) { p.report = report.NewWriter(out) }
}

// WithStore publishes each finished cycle for the HTTP API.
func WithStore(store *health.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, newRunID: uuid.NewString}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result describes a finished cycle.
type Result struct {
	RunID         string
	Events        []report.BookmakerCount
	Groups        []*models.FixtureGroup
	Opportunities []models.Opportunity
	MatchStats    matcher.Stats
	ScanStats     calculator.ScanStats
	Stored        int
	Notified      int
}

// Profile resolves the matcher profile from config, applying threshold overrides.
func Profile(cfg config.MatcherConfig) (matcher.Profile, error) {
	p, ok := matcher.ProfileByName(cfg.Profile)
	if !ok {
		return matcher.Profile{}, fmt.Errorf("%w: unknown matcher profile %q", config.ErrInvalid, cfg.Profile)
	}
	if cfg.TimeThreshold > 0 {
		p.TimeThreshold = cfg.TimeThreshold
	}
	if cfg.NameThreshold > 0 {
		p.NameThreshold = cfg.NameThreshold
	}
	if cfg.MinCoverage > 0 {
		p.MinCoverage = cfg.MinCoverage
	}
	return p, nil
}

func (p *Pipeline) PurifiedPath() string {
	return filepath.Join(p.cfg.Paths.MatchedDir, PurifiedFile)
}

func (p *Pipeline) OpportunitiesPath() string {
	return filepath.Join(p.cfg.Paths.OpportunitiesDir, OpportunitiesFile)
}

// Fetch runs every source concurrently and overwrites their raw files.
func (p *Pipeline) Fetch(ctx context.Context) ([]fetcher.Result, error) {
	if len(p.sources) == 0 {
		return nil, nil
	}
	results := fetcher.Run(ctx, p.sources, fetcher.RunOptions{Timeout: p.cfg.Fetcher.Timeout})
	if err := fetcher.WriteRaw(p.cfg.Paths.RawDir, results); err != nil {
		return results, fmt.Errorf("failed to write raw events: %w", err)
	}
	return results, nil
}

// LoadRaw reads every raw collection in name order. A collection that cannot be read is
// dropped with a warning and contributes zero events.
func (p *Pipeline) LoadRaw() ([]matcher.BookmakerEvents, []report.BookmakerCount, error) {
	names, err := storage.ListRaw(p.cfg.Paths.RawDir)
	if err != nil {
		return nil, nil, err
	}
	var lists []matcher.BookmakerEvents
	var counts []report.BookmakerCount
	for _, name := range names {
		path := storage.RawPath(p.cfg.Paths.RawDir, name)
		events, err := storage.ReadEvents(path)
		if err != nil {
			slog.Warn("Dropping unreadable raw collection", "bookmaker", name, "file", path, "error", err)
			events = nil
		}
		slog.Info("Loaded raw events", "bookmaker", name, "events", len(events))
		lists = append(lists, matcher.BookmakerEvents{Bookmaker: name, Events: events})
		counts = append(counts, report.BookmakerCount{Bookmaker: name, Events: len(events)})
	}
	return lists, counts, nil
}

// LoadGroups reads the purified fixture file. An unreadable file is dropped with a warning.
func (p *Pipeline) LoadGroups() []*models.FixtureGroup {
	groups, err := storage.ReadGroups(p.PurifiedPath())
	if err != nil {
		slog.Warn("Dropping unreadable purified fixtures", "file", p.PurifiedPath(), "error", err)
		return nil
	}
	slog.Info("Loaded purified fixtures", "fixtures", len(groups), "file", p.PurifiedPath())
	return groups
}

// Purify matches the raw collections and overwrites the purified fixture file.
func (p *Pipeline) Purify() ([]*models.FixtureGroup, matcher.Stats, []report.BookmakerCount, error) {
	profile, err := Profile(p.cfg.Matcher)
	if err != nil {
		return nil, matcher.Stats{}, nil, err
	}
	lists, counts, err := p.LoadRaw()
	if err != nil {
		return nil, matcher.Stats{}, nil, err
	}

	groups, stats := matcher.New(profile).Match(lists)
	if profile.Exact {
		groups = matcher.CompleteMarkets(groups)
	}
	if err := storage.WriteGroups(p.PurifiedPath(), groups); err != nil {
		return nil, stats, counts, err
	}
	slog.Info("Saved purified fixtures", "fixtures", len(groups), "file", p.PurifiedPath())

	if p.report != nil {
		p.report.Purification(counts, groups, profile.MinCoverage)
	}
	return groups, stats, counts, nil
}

// Detect scans groups and overwrites the opportunity file, best first.
func (p *Pipeline) Detect(groups []*models.FixtureGroup) ([]models.Opportunity, calculator.ScanStats, error) {
	opps, stats := calculator.Scan(groups, p.cfg.Arbitrage.TotalStake)
	if err := storage.WriteOpportunities(p.OpportunitiesPath(), opps); err != nil {
		return nil, stats, err
	}
	slog.Info("Saved opportunities", "opportunities", len(opps), "file", p.OpportunitiesPath())

	if p.report != nil {
		p.report.Opportunities(opps, p.cfg.Arbitrage.TopN)
	}
	return opps, stats, nil
}

// Deliver stores opportunities in the SQL sink and runs the notifiers. Failures are logged only.
func (p *Pipeline) Deliver(ctx context.Context, runID string, opps []models.Opportunity) (stored, notified int) {
	if p.sink != nil {
		n, err := p.sink.SaveOpportunities(ctx, runID, opps)
		if err != nil {
			slog.Error("Failed to store opportunities", "run_id", runID, "error", err)
		} else {
			stored = n
		}
	}
	if len(p.notifiers) > 0 {
		notified = notify.NotifyAll(ctx, p.notifiers, opps)
	}
	return stored, notified
}

// RunOnce executes a full cycle.
func (p *Pipeline) RunOnce(ctx context.Context) (*Result, error) {
	started := time.Now()
	res := &Result{RunID: p.newRunID()}
	slog.Info("Cycle started", "run_id", res.RunID)

	err := p.runOnce(ctx, res)
	if p.store != nil {
		events := make(map[string]int, len(res.Events))
		for _, c := range res.Events {
			events[c.Bookmaker] = c.Events
		}
		p.store.Publish(health.Cycle{
			RunID:         res.RunID,
			StartedAt:     started,
			Duration:      time.Since(started),
			Events:        events,
			Groups:        res.Groups,
			Opportunities: res.Opportunities,
			Err:           err,
		})
	}
	if err != nil {
		return res, fmt.Errorf("cycle %s: %w", res.RunID, err)
	}

	slog.Info("Cycle finished",
		"run_id", res.RunID,
		"fixtures", len(res.Groups),
		"opportunities", len(res.Opportunities),
		"stored", res.Stored,
		"notified", res.Notified,
		"duration", time.Since(started))
	return res, nil
}

func (p *Pipeline) runOnce(ctx context.Context, res *Result) error {
	if _, err := p.Fetch(ctx); err != nil {
		return err
	}

	groups, mstats, counts, err := p.Purify()
	res.Events, res.MatchStats = counts, mstats
	if err != nil {
		return err
	}
	res.Groups = groups

	opps, sstats, err := p.Detect(groups)
	res.ScanStats = sstats
	if err != nil {
		return err
	}
	res.Opportunities = opps

	res.Stored, res.Notified = p.Deliver(ctx, res.RunID, opps)
	return nil
}

// RunLoop runs a cycle immediately, then on every tick and on every trigger until ctx is done.
// A failed cycle is logged and the loop continues.
func (p *Pipeline) RunLoop(ctx context.Context, interval time.Duration, trigger <-chan struct{}) {
	slog.Info("Pipeline loop started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycles := 0
	run := func() {
		cycles++
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Cycle failed", "cycle_number", cycles, "error", err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Pipeline loop stopped", "total_cycles", cycles)
			return
		case <-ticker.C:
			run()
		case <-trigger:
			run()
		}
	}
}

// Trigger is a non-blocking request for an extra cycle.
type Trigger chan struct{}

func NewTrigger() Trigger {
	return make(Trigger, 1)
}

// Fire queues a cycle and reports false when one is already queued.
func (t Trigger) Fire() bool {
	select {
	case t <- struct{}{}:
		return true
	default:
		return false
	}
}
