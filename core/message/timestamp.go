package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire layout: minute precision, local clock, no zone.
const TimestampLayout = "2006-01-02 15:04"

// accepted layouts when decoding, most specific wire form first.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// Timestamp is a point in time that serializes with minute precision.
type Timestamp struct {
	time.Time
}

// Now returns the current local time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

// At wraps t.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Minute returns the timestamp as it survives a round trip over the wire.
func (t Timestamp) Minute() time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), 0, 0, time.Local)
}

func (t Timestamp) String() string {
	return t.Local().Format(TimestampLayout)
}

// MarshalJSON renders "YYYY-MM-DD HH:MM" in local time; seconds are truncated.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses any of the accepted layouts. Layouts without a zone are
// interpreted in local time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return v, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
