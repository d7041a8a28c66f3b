package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// Extension is the file suffix of every persisted collection.
const Extension = ".ndjson"

// maxLineSize bounds one NDJSON record. Purified fixtures with many bookmakers can be long.
const maxLineSize = 16 << 20

// RawPath returns the raw collection file of a bookmaker.
func RawPath(dir, bookmaker string) string {
	return filepath.Join(dir, bookmaker+Extension)
}

// ListRaw returns bookmaker names for every raw collection in dir, sorted.
// A missing directory yields no names.
func ListRaw(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Raw directory does not exist", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list raw directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

// ReadEvents loads a raw collection. Malformed lines and events failing validation are
// skipped with a warning; a missing file yields an empty list.
func ReadEvents(path string) ([]models.Event, error) {
	var events []models.Event
	err := readLines(path, func(line int, data []byte) {
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("Skipping malformed event line", "file", path, "line", line, "error", err)
			return
		}
		if err := ev.Validate(); err != nil {
			slog.Warn("Skipping invalid event", "file", path, "line", line, "error", err)
			return
		}
		events = append(events, ev)
	})
	return events, err
}

// WriteEvents overwrites a raw collection.
func WriteEvents(path string, events []models.Event) error {
	return writeLines(path, events)
}

// ReadGroups loads purified fixtures.
func ReadGroups(path string) ([]*models.FixtureGroup, error) {
	var groups []*models.FixtureGroup
	err := readLines(path, func(line int, data []byte) {
		g := &models.FixtureGroup{}
		if err := json.Unmarshal(data, g); err != nil {
			slog.Warn("Skipping malformed fixture line", "file", path, "line", line, "error", err)
			return
		}
		if g.Coverage() == 0 {
			slog.Warn("Skipping fixture without events", "file", path, "line", line, "fixture", g.Home+" vs "+g.Away)
			return
		}
		groups = append(groups, g)
	})
	return groups, err
}

// WriteGroups overwrites the purified fixture collection.
func WriteGroups(path string, groups []*models.FixtureGroup) error {
	return writeLines(path, groups)
}

// ReadOpportunities loads a sorted opportunity collection.
func ReadOpportunities(path string) ([]models.Opportunity, error) {
	var opps []models.Opportunity
	err := readLines(path, func(line int, data []byte) {
		var o models.Opportunity
		if err := json.Unmarshal(data, &o); err != nil {
			slog.Warn("Skipping malformed opportunity line", "file", path, "line", line, "error", err)
			return
		}
		opps = append(opps, o)
	})
	return opps, err
}

// WriteOpportunities overwrites the opportunity collection.
func WriteOpportunities(path string, opps []models.Opportunity) error {
	return writeLines(path, opps)
}

func readLines(path string, handle func(line int, data []byte)) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Collection file does not exist", "file", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := scanLines(f, handle); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func scanLines(r io.Reader, handle func(line int, data []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		handle(line, data)
	}
	return sc.Err()
}

// writeLines replaces path atomically: records go to a temp file in the same directory first.
func writeLines[T any](path string, items []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file for %s: %w", path, err)
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode record %d for %s: %w", i+1, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
