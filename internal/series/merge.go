package series

import "slices"

// leadInPoints is how many cached points before the refetch cutoff are kept
// so the chart has some history left of the window.
const leadInPoints = 4

// FetchPlan is the outcome of reconciling a requested window with the cache.
type FetchPlan struct {
	// StartHistory is the window start widened to whole buckets.
	StartHistory int64
	// FetchStart is what the history source is asked for.
	FetchStart int64
	// Prior is the retained cached data new points are appended to.
	Prior []Point
	// SkipInitialState suppresses the pre-range state in the fetch.
	SkipInitialState bool
}

// HistoryStart widens start so that [result, end) covers ceil((end-start)/step) buckets.
func HistoryStart(start, end, stepMs int64, raw bool) int64 {
	if raw || stepMs <= 0 {
		return start
	}
	span := end - start
	n := span / stepMs
	if span%stepMs > 0 {
		n++
	}
	return end - n*stepMs
}

// Plan decides the fetch window for [start, end) given the cached entry, which
// is discarded when missing or recorded for a different hoursToShow.
func Plan(start, end int64, cached *Entry, hoursToShow float64, stepMs int64, raw bool) FetchPlan {
	plan := FetchPlan{StartHistory: HistoryStart(start, end, stepMs, raw)}

	if cached != nil && cached.HoursToShow == hoursToShow {
		idx := slices.IndexFunc(cached.Data, func(p Point) bool { return p.Timestamp > start })
		if idx >= 0 {
			plan.SkipInitialState = true
			plan.Prior = slices.Clone(cached.Data[max(0, idx-leadInPoints):])
		}
	}

	plan.FetchStart = plan.StartHistory
	if n := len(plan.Prior); n > 0 {
		plan.FetchStart = plan.Prior[n-1].Timestamp + 1
	}
	return plan
}

// Merge appends freshly fetched points after the retained prior data. The
// source must return points in non-decreasing order from the fetch start,
// nothing is re-sorted.
func Merge(prior, fresh []Point) []Point {
	out := make([]Point, 0, len(prior)+len(fresh))
	out = append(out, prior...)
	return append(out, fresh...)
}
