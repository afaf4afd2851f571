package series

import (
	"fmt"

	"github.com/volatiletech/null/v8"
)

// FillPolicy decides what replaces a missing value, both for null points
// inside the series and for buckets that received no point at all.
type FillPolicy string

const (
	// FillUnset leaves null points as-is and empty buckets truly empty.
	FillUnset FillPolicy = ""
	// FillLast carries the last non-null value forward.
	FillLast FillPolicy = "last"
	// FillZero substitutes 0.
	FillZero FillPolicy = "zero"
	// FillNull leaves null points as-is and gives empty buckets an explicit null point.
	FillNull FillPolicy = "null"
)

// ParseFillPolicy resolves a configured fill name.
func ParseFillPolicy(name string) (FillPolicy, error) {
	switch p := FillPolicy(name); p {
	case FillUnset, FillLast, FillZero, FillNull:
		return p, nil
	default:
		return FillUnset, fmt.Errorf("%w: %q", ErrUnknownFill, name)
	}
}

// fillValue returns the substitute for a null point given the running
// last non-null value of the pass.
func (f FillPolicy) fillValue(last null.Float64) null.Float64 {
	switch f {
	case FillLast:
		return last
	case FillZero:
		return null.Float64From(0)
	default:
		return null.Float64{}
	}
}

// fillEmpty returns the synthetic content of an empty bucket starting at ts.
// lastBucket is the last non-null value of the preceding non-empty buckets.
func (f FillPolicy) fillEmpty(ts int64, lastBucket null.Float64) []Point {
	switch f {
	case FillLast:
		return []Point{{Timestamp: ts, Value: lastBucket}}
	case FillZero:
		return []Point{NewPoint(ts, 0)}
	case FillNull:
		return []Point{NullPoint(ts)}
	default:
		return nil
	}
}
