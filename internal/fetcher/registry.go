package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/surebet/internal/pkg/config"
	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// Source acquires today's football fixtures with 1X2 odds from one bookmaker.
type Source interface {
	Name() string
	FetchToday(ctx context.Context) ([]models.Event, error)
}

type Factory func(cfg *config.Config) Source

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("fetcher: empty name in Register")
	}
	if f == nil {
		panic("fetcher: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("fetcher: duplicate registration for " + n)
	}
	registry[n] = f
}

func FactoryByName(name string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Enabled builds the sources selected by cfg.Fetcher.Enabled in name order.
// An empty selection enables every registered source; an unknown name is an error.
func Enabled(cfg *config.Config) ([]Source, error) {
	for _, name := range cfg.Fetcher.Enabled {
		if _, ok := FactoryByName(name); !ok {
			return nil, fmt.Errorf("unknown source %q (available: %v)", name, AvailableNames())
		}
	}

	var out []Source
	for _, name := range AvailableNames() {
		if !cfg.Fetcher.SourceEnabled(name) {
			continue
		}
		f, _ := FactoryByName(name)
		out = append(out, f(cfg))
	}
	return out, nil
}
