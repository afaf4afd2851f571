package series

import (
	"slices"

	"github.com/volatiletech/null/v8"
)

// Bucket is a fixed-duration slice of the window starting at Timestamp.
type Bucket struct {
	Timestamp int64
	Data      []Point
}

// Boundaries walks back from end in steps of stepMs while the boundary is
// not before start, and returns the boundaries in ascending order. The last
// element is always end itself.
func Boundaries(start, end, stepMs int64) []int64 {
	if stepMs <= 0 || end < start {
		return nil
	}
	bounds := make([]int64, 0, (end-start)/stepMs+1)
	for t := end; t >= start; t -= stepMs {
		bounds = append(bounds, t)
	}
	slices.Reverse(bounds)
	return bounds
}

// Bucketize partitions data into buckets aligned to end. A point goes to the
// last bucket whose start is <= its timestamp; the scan only assigns once it
// reaches a later boundary at index > 0, so points earlier than the first
// boundary land in the first bucket and points at or after end are dropped.
// The sentinel bucket at end is removed from the result.
func Bucketize(data []Point, start, end, stepMs int64, fill FillPolicy) []Bucket {
	bounds := Boundaries(start, end, stepMs)
	if len(bounds) == 0 {
		return nil
	}
	buckets := make([]Bucket, len(bounds))
	for i, ts := range bounds {
		buckets[i] = Bucket{Timestamp: ts}
	}

	var lastValue null.Float64
	for _, p := range data {
		if p.Value.Valid {
			lastValue = p.Value
		} else {
			p.Value = fill.fillValue(lastValue)
		}
		for i := 1; i < len(buckets); i++ {
			if buckets[i].Timestamp > p.Timestamp {
				buckets[i-1].Data = append(buckets[i-1].Data, p)
				break
			}
		}
	}

	var lastBucketValue null.Float64
	for i := range buckets {
		b := &buckets[i]
		if len(b.Data) == 0 {
			b.Data = fill.fillEmpty(b.Timestamp, lastBucketValue)
			continue
		}
		if v := b.Data[len(b.Data)-1].Value; v.Valid {
			lastBucketValue = v
		}
	}

	return buckets[:len(buckets)-1]
}

// Compute reduces every bucket to one point stamped with the bucket start.
func Compute(buckets []Bucket, fn Func) []Point {
	out := make([]Point, len(buckets))
	for i, b := range buckets {
		out[i] = Point{Timestamp: b.Timestamp, Value: fn.Apply(b.Data)}
	}
	return out
}
