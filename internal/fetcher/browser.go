package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/Vodeneev/surebet/internal/pkg/config"
)

// Browser starts a fresh Chrome for every page visit.
type Browser struct {
	headless  bool
	userAgent string
}

func NewBrowser(cfg config.FetcherConfig) *Browser {
	return &Browser{
		headless:  cfg.IsHeadless(),
		userAgent: cfg.UserAgent,
	}
}

func (b *Browser) newContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(b.userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		slog.Debug("chromedp", "message", fmt.Sprintf(format, v...))
	}))
	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

// CaptureOptions describes a page visit that records JSON responses.
type CaptureOptions struct {
	// Match selects the response URLs whose bodies are kept.
	Match func(url string) bool
	// Settle is the wait after navigation before Actions run.
	Settle time.Duration
	// Actions run after the settle wait, e.g. scrolling to trigger lazy loading.
	Actions []chromedp.Action
	// ReloadIfEmpty reloads the page once when nothing matched.
	ReloadIfEmpty bool
}

type capturedResponses struct {
	mu       sync.Mutex
	matched  map[network.RequestID]string
	finished []network.RequestID
}

func (c *capturedResponses) listen(match func(string) bool) func(ev interface{}) {
	return func(ev interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response != nil && match(e.Response.URL) {
				c.matched[e.RequestID] = e.Response.URL
			}
		case *network.EventLoadingFinished:
			if _, ok := c.matched[e.RequestID]; ok {
				c.finished = append(c.finished, e.RequestID)
			}
		}
	}
}

func (c *capturedResponses) ids() []network.RequestID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]network.RequestID(nil), c.finished...)
}

// CaptureJSON opens pageURL and returns the bodies of matching responses in arrival order.
// Bodies that cannot be read are skipped with a warning.
func (b *Browser) CaptureJSON(ctx context.Context, pageURL string, opts CaptureOptions) ([][]byte, error) {
	if opts.Match == nil {
		return nil, fmt.Errorf("capture %s: no response matcher", pageURL)
	}
	ctx, cancel := b.newContext(ctx)
	defer cancel()

	captured := &capturedResponses{matched: map[network.RequestID]string{}}
	chromedp.ListenTarget(ctx, captured.listen(opts.Match))

	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(opts.Settle),
	}
	actions = append(actions, opts.Actions...)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}

	if len(captured.ids()) == 0 && opts.ReloadIfEmpty {
		slog.Debug("No matching responses, reloading", "url", pageURL)
		if err := chromedp.Run(ctx, chromedp.Reload(), chromedp.Sleep(opts.Settle)); err != nil {
			return nil, fmt.Errorf("failed to reload %s: %w", pageURL, err)
		}
	}

	var bodies [][]byte
	for _, id := range captured.ids() {
		var body []byte
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(id).Do(ctx)
			return err
		}))
		if err != nil {
			slog.Warn("Failed to read response body", "request_id", id, "error", err)
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// Scroll returns actions scrolling the page by step pixels times, pausing after each step.
func Scroll(times, step int, pause time.Duration) []chromedp.Action {
	actions := make([]chromedp.Action, 0, 2*times)
	for i := 0; i < times; i++ {
		var y float64
		actions = append(actions,
			chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d), window.scrollY", step), &y),
			chromedp.Sleep(pause),
		)
	}
	return actions
}

// EvaluateGlobal opens pageURL, waits until window[name] is defined and returns it as JSON.
func (b *Browser) EvaluateGlobal(ctx context.Context, pageURL, name string, poll time.Duration) ([]byte, error) {
	ctx, cancel := b.newContext(ctx)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(pageURL)); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}

	defined := fmt.Sprintf("typeof window[%q] !== 'undefined'", name)
	for {
		var ok bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(defined, &ok)); err != nil {
			return nil, fmt.Errorf("failed to probe window[%q]: %w", name, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("window[%q] never appeared on %s: %w", name, pageURL, ctx.Err())
		case <-time.After(poll):
		}
	}

	var state string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("JSON.stringify(window[%q])", name), &state)); err != nil {
		return nil, fmt.Errorf("failed to read window[%q]: %w", name, err)
	}
	return []byte(state), nil
}

// ClickWhileVisible clicks the first element matching selector until it disappears or max clicks
// were made, pausing after each click.
func ClickWhileVisible(selector string, max int, pause time.Duration) chromedp.Action {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el || el.offsetParent === null) return false;
		el.click();
		return true;
	})()`, selector)
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for i := 0; i < max; i++ {
			var clicked bool
			if err := chromedp.Evaluate(script, &clicked).Do(ctx); err != nil {
				return err
			}
			if !clicked {
				return nil
			}
			if err := chromedp.Sleep(pause).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClickByText clicks the first element matching selector whose text contains text.
// A missing element is not an error.
func ClickByText(selector, text string, pause time.Duration) chromedp.Action {
	script := fmt.Sprintf(`(() => {
		const el = Array.from(document.querySelectorAll(%q)).find(e => e.textContent.includes(%q));
		if (!el) return false;
		el.click();
		return true;
	})()`, selector, text)
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var clicked bool
		if err := chromedp.Evaluate(script, &clicked).Do(ctx); err != nil {
			return err
		}
		if !clicked {
			slog.Debug("Nothing to click", "selector", selector, "text", text)
			return nil
		}
		return chromedp.Sleep(pause).Do(ctx)
	})
}
