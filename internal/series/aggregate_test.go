package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func values(vs ...interface{}) []Point {
	points := make([]Point, len(vs))
	for i, v := range vs {
		switch x := v.(type) {
		case nil:
			points[i] = NullPoint(int64(i))
		case int:
			points[i] = NewPoint(int64(i), float64(x))
		case float64:
			points[i] = NewPoint(int64(i), x)
		}
	}
	return points
}

func TestParseFunc(t *testing.T) {
	for name, want := range funcNames {
		got, err := ParseFunc(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseFunc("mean")
	require.ErrorIs(t, err, ErrUnknownFunc)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		fn     Func
		points []Point
		want   null.Float64
	}{
		{"sum empty", FuncSum, nil, null.Float64From(0)},
		{"sum carries last value over nulls", FuncSum, values(5, nil, nil), null.Float64From(15)},
		{"sum leading null counts as zero", FuncSum, values(nil, 2, 3), null.Float64From(5)},
		{"avg empty", FuncAverage, nil, null.Float64{}},
		{"avg counts null-replaced entries", FuncAverage, values(4, nil), null.Float64From(4)},
		{"avg all null", FuncAverage, values(nil, nil), null.Float64{}},
		{"avg", FuncAverage, values(1, 2, 3, 4), null.Float64From(2.5)},
		{"min skips nulls", FuncMinimum, values(nil, 3, 1, nil, 2), null.Float64From(1)},
		{"min all null", FuncMinimum, values(nil, nil), null.Float64{}},
		{"max skips nulls", FuncMaximum, values(nil, 3, 7, nil), null.Float64From(7)},
		{"max empty", FuncMaximum, nil, null.Float64{}},
		{"first", FuncFirst, values(9, 1), null.Float64From(9)},
		{"first null as-is", FuncFirst, values(nil, 1), null.Float64{}},
		{"last", FuncLast, values(9, 1), null.Float64From(1)},
		{"last null as-is", FuncLast, values(1, nil), null.Float64{}},
		{"last empty", FuncLast, nil, null.Float64{}},
		{"median even", FuncMedian, values(1, 3, 2, 4), null.Float64From(2.5)},
		{"median odd", FuncMedian, values(1, 3, 2), null.Float64From(2)},
		{"median excludes nulls", FuncMedian, values(nil, 10, nil, 2, 6), null.Float64From(6)},
		{"median all null", FuncMedian, values(nil), null.Float64{}},
		{"delta", FuncDelta, values(1, 5, 3), null.Float64From(4)},
		{"delta all null", FuncDelta, values(nil, nil), null.Float64{}},
		{"raw has no reduction", FuncRaw, values(1), null.Float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn.Apply(tt.points))
		})
	}
}

func TestApplyAllNullBucket(t *testing.T) {
	bucket := []Point{NullPoint(0)}
	for _, fn := range []Func{FuncAverage, FuncMinimum, FuncMaximum, FuncMedian, FuncDelta} {
		assert.False(t, fn.Apply(bucket).Valid, fn.String())
	}
	assert.Equal(t, null.Float64From(0), FuncSum.Apply(bucket))
}
