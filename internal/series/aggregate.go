package series

import (
	"fmt"
	"slices"

	"github.com/volatiletech/null/v8"
)

// Func is the reduction applied to each bucket.
type Func int

const (
	// FuncRaw disables bucketing, the merged series is served as-is.
	FuncRaw Func = iota
	FuncAverage
	FuncMaximum
	FuncMinimum
	FuncFirst
	FuncLast
	FuncSum
	FuncMedian
	FuncDelta
)

var funcNames = map[string]Func{
	"raw":    FuncRaw,
	"avg":    FuncAverage,
	"max":    FuncMaximum,
	"min":    FuncMinimum,
	"first":  FuncFirst,
	"last":   FuncLast,
	"sum":    FuncSum,
	"median": FuncMedian,
	"delta":  FuncDelta,
}

// ParseFunc resolves a configured aggregation name such as "avg" or "raw".
func ParseFunc(name string) (Func, error) {
	f, ok := funcNames[name]
	if !ok {
		return FuncRaw, fmt.Errorf("%w: %q", ErrUnknownFunc, name)
	}
	return f, nil
}

func (f Func) String() string {
	for name, fn := range funcNames {
		if fn == f {
			return name
		}
	}
	return fmt.Sprintf("Func(%d)", int(f))
}

// Apply reduces points to a single value. FuncRaw has no reduction and yields null.
func (f Func) Apply(points []Point) null.Float64 {
	switch f {
	case FuncAverage:
		return average(points)
	case FuncMaximum:
		return maximum(points)
	case FuncMinimum:
		return minimum(points)
	case FuncFirst:
		return first(points)
	case FuncLast:
		return last(points)
	case FuncSum:
		return null.Float64From(sum(points))
	case FuncMedian:
		return median(points)
	case FuncDelta:
		return delta(points)
	default:
		return null.Float64{}
	}
}

// sum replaces a null with the last non-null value seen so far, 0 before any.
func sum(points []Point) float64 {
	var total, carry float64
	for _, p := range points {
		if p.Value.Valid {
			carry = p.Value.Float64
		}
		total += carry
	}
	return total
}

// average is null when no point carries a value, otherwise sum over all points.
func average(points []Point) null.Float64 {
	if !slices.ContainsFunc(points, func(p Point) bool { return p.Value.Valid }) {
		return null.Float64{}
	}
	return null.Float64From(sum(points) / float64(len(points)))
}

func minimum(points []Point) null.Float64 {
	var m null.Float64
	for _, p := range points {
		if p.Value.Valid && (!m.Valid || p.Value.Float64 < m.Float64) {
			m = p.Value
		}
	}
	return m
}

func maximum(points []Point) null.Float64 {
	var m null.Float64
	for _, p := range points {
		if p.Value.Valid && (!m.Valid || p.Value.Float64 > m.Float64) {
			m = p.Value
		}
	}
	return m
}

func first(points []Point) null.Float64 {
	if len(points) == 0 {
		return null.Float64{}
	}
	return points[0].Value
}

func last(points []Point) null.Float64 {
	if len(points) == 0 {
		return null.Float64{}
	}
	return points[len(points)-1].Value
}

func median(points []Point) null.Float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Value.Valid {
			values = append(values, p.Value.Float64)
		}
	}
	if len(values) == 0 {
		return null.Float64{}
	}
	slices.Sort(values)
	mid := (len(values) - 1) / 2
	if len(values)%2 == 1 {
		return null.Float64From(values[mid])
	}
	return null.Float64From((values[mid] + values[mid+1]) / 2)
}

func delta(points []Point) null.Float64 {
	hi, lo := maximum(points), minimum(points)
	if !hi.Valid || !lo.Valid {
		return null.Float64{}
	}
	return null.Float64From(hi.Float64 - lo.Float64)
}
