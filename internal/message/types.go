package message

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Observation is one raw state change returned by the history API.
type Observation struct {
	State       string
	LastChanged time.Time
}

// EntityState is the current known state of an entity on the host.
type EntityState struct {
	EntityID    string
	State       string
	LastChanged time.Time
}

// Value parses the observation state as a float. States such as
// "unavailable" or "unknown" yield a null value.
func (o Observation) Value() null.Float64 {
	return ParseValue(o.State)
}

// ParseValue parses a numeric state, returning null when it is not a finite number.
func ParseValue(state string) null.Float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(state), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float64{}
	}
	return null.Float64From(f)
}

// timestampFormats are tried in order when decoding last_changed.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999", // no zone, treated as UTC
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp decodes the timestamp strings the history API emits.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Snippet returns s truncated to maxLength for logging.
func Snippet(s string, maxLength int) string {
	if maxLength <= 0 {
		return "..."
	}
	if len(s) > maxLength {
		return s[:maxLength] + "..."
	}
	return s
}
