package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp decodes the backend's date fields, which arrive as RFC3339,
// "2006-01-02 15:04:05" with or without an offset, "2006-01-02" or null.
// Zone-less values are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised value %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// ParseDeadline reads a deadline typed into the dashboard. A full RFC3339
// timestamp keeps its own offset; a bare date means the end of that day in
// loc, so "today" is still an acceptable deadline.
func ParseDeadline(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrRequiredField
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither a date nor an RFC3339 timestamp", ErrInvalidDate, raw)
	}
	return EndOfDay(day, loc), nil
}

// EndOfDay is the last second of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
}

// OrderDeadline is the instant an order's deadline expires in loc. The
// backend stores order deadlines as calendar days, so a midnight value,
// either as sent or in loc, is read as the whole of that day.
func OrderDeadline(o Order, loc *time.Location) time.Time {
	d := o.DeadlineAt.Time
	if d.IsZero() {
		return d
	}
	// Date-only values decode as UTC midnight; business-zone midnight may
	// arrive converted to UTC.
	for _, t := range []time.Time{d, d.In(loc)} {
		if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 {
			return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
		}
	}
	return d
}
