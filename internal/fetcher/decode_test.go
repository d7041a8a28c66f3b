package fetcher

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc"`, "abc"},
		{`12345678901`, "12345678901"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var s FlexString
		if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if string(s) != tt.want {
			t.Errorf("FlexString(%s) = %q, want %q", tt.in, s, tt.want)
		}
	}
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`2.15`, 2.15},
		{`"3.40"`, 3.4},
		{`"n/a"`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var f FlexFloat
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if float64(f) != tt.want {
			t.Errorf("FlexFloat(%s) = %v, want %v", tt.in, f, tt.want)
		}
	}
}

func TestSameDay(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, athens)

	// 22:30 UTC on the 18th is already the 19th in Athens (UTC+3).
	if SameDay(time.Date(2026, 10, 18, 22, 30, 0, 0, time.UTC), now, athens) {
		t.Error("22:30 UTC should be tomorrow in Athens")
	}
	if !SameDay(time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC), now, athens) {
		t.Error("midnight Athens should be today")
	}
	if !SameDay(time.Date(2026, 10, 18, 20, 59, 59, 0, time.UTC), now, athens) {
		t.Error("23:59:59 Athens should be today")
	}
}

func TestWindow(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	if err != nil {
		t.Fatal(err)
	}
	from, until := Window(time.Date(2026, 10, 18, 12, 0, 0, 0, athens), athens, 3*time.Hour)

	if !from.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, athens)) {
		t.Errorf("from = %v", from)
	}
	if !until.Equal(time.Date(2026, 10, 19, 3, 0, 0, 0, athens)) {
		t.Errorf("until = %v", until)
	}
	if !InWindow(from, from, until) || !InWindow(until, from, until) {
		t.Error("window bounds are inclusive")
	}
	if InWindow(until.Add(time.Second), from, until) || InWindow(from.Add(-time.Second), from, until) {
		t.Error("times outside the window must be rejected")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-18T16:30:00Z", time.Date(2026, 10, 18, 16, 30, 0, 0, time.UTC)},
		{"2026-10-18T19:30:00+03:00", time.Date(2026, 10, 18, 16, 30, 0, 0, time.UTC)},
		{"2026-10-18T16:30:00", time.Date(2026, 10, 18, 16, 30, 0, 0, time.UTC)},
		{"2026-10-18T16:30:00.250", time.Date(2026, 10, 18, 16, 30, 0, 250e6, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTimestamp("tonight"); err == nil {
		t.Error("expected an error for a non-timestamp")
	}
}
