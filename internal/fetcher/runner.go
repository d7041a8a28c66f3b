package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Vodeneev/surebet/internal/pkg/models"
	"github.com/Vodeneev/surebet/internal/pkg/storage"
)

// Result is the outcome of one source run. A failed source carries Err and no events.
type Result struct {
	Source   string
	Events   []models.Event
	Err      error
	Duration time.Duration
}

// RunOptions configures how sources are run.
type RunOptions struct {
	// Timeout bounds each source independently. Zero means no per-source limit.
	Timeout time.Duration
	// OnError is called when a source returns an error. If nil, errors are logged.
	OnError func(s Source, err error)
}

// Run fetches all sources in parallel and waits for every one of them.
// Results keep the order of sources; a failing source yields zero events.
func Run(ctx context.Context, sources []Source, opts RunOptions) []Result {
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results
	}

	onError := opts.OnError
	if onError == nil {
		onError = func(s Source, err error) {
			slog.Error("Source failed", "source", s.Name(), "error", err)
		}
	}

	var wg sync.WaitGroup
	for i, s := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()

			runCtx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			slog.Info("Starting source", "source", s.Name())
			start := time.Now()
			events, err := fetchSafely(runCtx, s)
			res := Result{Source: s.Name(), Duration: time.Since(start)}
			if err != nil {
				res.Err = err
				onError(s, err)
			} else {
				res.Events = events
				slog.Info("Source finished", "source", s.Name(), "events", len(events), "duration", res.Duration)
			}
			results[i] = res
		}()
	}
	wg.Wait()
	return results
}

// fetchSafely turns a panicking source into a failed one.
func fetchSafely(ctx context.Context, s Source) (events []models.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("source %s panicked: %v", s.Name(), r)
		}
	}()
	return s.FetchToday(ctx)
}

// WriteRaw overwrites <dir>/<source>.ndjson for every result. A failed source is written empty.
func WriteRaw(dir string, results []Result) error {
	for _, r := range results {
		path := storage.RawPath(dir, r.Source)
		if err := storage.WriteEvents(path, r.Events); err != nil {
			return err
		}
		slog.Info("Saved raw events", "source", r.Source, "events", len(r.Events), "file", path)
	}
	return nil
}
