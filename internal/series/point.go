package series

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"
)

// Point is a single observation: milliseconds since epoch and a nullable value.
// A null value means the entity reported no usable state at that time.
type Point struct {
	Timestamp int64
	Value     null.Float64
}

// NewPoint returns a point holding a valid value.
func NewPoint(ts int64, v float64) Point {
	return Point{Timestamp: ts, Value: null.Float64From(v)}
}

// NullPoint returns a point without a value.
func NullPoint(ts int64) Point {
	return Point{Timestamp: ts}
}

// MarshalJSON encodes the point as a [timestamp, value] pair, value may be null.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Timestamp, p.Value})
}

// UnmarshalJSON decodes a [timestamp, value] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPoint, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: expected 2 elements, got %d", ErrMalformedPoint, len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp: %w", ErrMalformedPoint, err)
	}
	if err := p.Value.UnmarshalJSON(pair[1]); err != nil {
		return fmt.Errorf("%w: value: %w", ErrMalformedPoint, err)
	}
	return nil
}

// Time returns the point timestamp as a time.Time.
func (p Point) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Entry is the persisted cache slot for one entity and window size.
type Entry struct {
	HoursToShow float64   `json:"hours_to_show"`
	LastFetched time.Time `json:"last_fetched"`
	Data        []Point   `json:"data"`
}

// CacheKey returns the store key for an entity and window size, e.g. "sensor.temp_24".
func CacheKey(entityID string, hoursToShow float64) string {
	return entityID + "_" + strconv.FormatFloat(hoursToShow, 'f', -1, 64)
}

// LastValue returns the value of the last non-null point.
func LastValue(points []Point) (float64, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Value.Valid {
			return points[i].Value.Float64, true
		}
	}
	return 0, false
}
