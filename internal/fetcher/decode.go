package fetcher

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexString decodes a JSON string or number. Null decodes to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// FlexFloat decodes a JSON number or numeric string. Null and unparsable strings decode to 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexFloat(n)
	return nil
}

// DayBounds returns the start of now's calendar day in loc and the start of the next one.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether t falls on now's calendar day in loc.
func SameDay(t, now time.Time, loc *time.Location) bool {
	start, end := DayBounds(now, loc)
	return !t.Before(start) && t.Before(end)
}

// ParseTimestamp reads an ISO 8601 timestamp. Values without an offset are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}

// Window returns the start of now's day in loc and an inclusive end grace past the next midnight.
func Window(now time.Time, loc *time.Location, grace time.Duration) (time.Time, time.Time) {
	from, next := DayBounds(now, loc)
	return from, next.Add(grace)
}

// InWindow reports whether from <= t <= until.
func InWindow(t, from, until time.Time) bool {
	return !t.Before(from) && !t.After(until)
}
