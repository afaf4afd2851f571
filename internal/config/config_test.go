package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/historylens/internal/series"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
history:
  baseURL: http://ha.local:8123
  token: secret
cache:
  compress: true
series:
  - entity: sensor.temperature
    hoursToShow: 12
    groupBy:
      func: median
      duration: 15m
      fill: zero
  - entity: sensor.power
    cache: false
  - entity: sensor.raw
    groupBy:
      func: raw
      duration: nonsense
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://ha.local:8123", cfg.History.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.History.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, 4, cfg.Refresh.Concurrency)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.Compress)
	assert.Equal(t, "info", cfg.Log.Level)
	require.Len(t, cfg.Series, 3)

	power := cfg.Series[1]
	assert.Equal(t, 24.0, power.HoursToShow)
	assert.Equal(t, GroupByConfig{Func: "avg", Duration: "1h", Fill: "last"}, power.GroupBy)
}

func TestSeriesOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	temp, err := cfg.Series[0].Options(0, cfg.Cache.Enabled)
	require.NoError(t, err)
	assert.Equal(t, series.Options{
		EntityID:    "sensor.temperature",
		Index:       0,
		HoursToShow: 12,
		Cache:       true,
		Func:        series.FuncMedian,
		BucketSize:  15 * time.Minute,
		Fill:        series.FillZero,
	}, temp)

	power, err := cfg.Series[1].Options(1, cfg.Cache.Enabled)
	require.NoError(t, err)
	assert.False(t, power.Cache)
	assert.Equal(t, time.Hour, power.BucketSize)

	// The duration is never resolved for raw series.
	raw, err := cfg.Series[2].Options(2, cfg.Cache.Enabled)
	require.NoError(t, err)
	assert.Equal(t, series.FuncRaw, raw.Func)
}

func TestLoadRejectsInvalidSeries(t *testing.T) {
	tests := map[string]struct {
		body string
		want error
	}{
		"unknown func": {
			body: "history: {baseURL: x}\nseries: [{entity: a, groupBy: {func: mean}}]",
			want: series.ErrUnknownFunc,
		},
		"bad duration": {
			body: "history: {baseURL: x}\nseries: [{entity: a, groupBy: {duration: soon}}]",
			want: ErrInvalidDuration,
		},
		"bad fill": {
			body: "history: {baseURL: x}\nseries: [{entity: a, groupBy: {fill: linear}}]",
			want: series.ErrUnknownFill,
		},
		"missing entity": {
			body: "history: {baseURL: x}\nseries: [{hoursToShow: 1}]",
			want: series.ErrEmptyEntityID,
		},
		"no series": {
			body: "history: {baseURL: x}",
			want: ErrNoSeries,
		},
		"no history url": {
			body: "series: [{entity: a}]",
			want: ErrEmptyHistoryURL,
		},
		"bad backend": {
			body: "history: {baseURL: x}\ncache: {backend: redis}\nseries: [{entity: a}]",
			want: ErrInvalidCacheBackend,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileMissing)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"5m":    5 * time.Minute,
		"1h30m": 90 * time.Minute,
		"1d":    24 * time.Hour,
		"1w":    7 * 24 * time.Hour,
		" 2s ":  2 * time.Second,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "10us", "-1h"} {
		_, err := ParseDuration(in)
		assert.ErrorIs(t, err, ErrInvalidDuration, in)
	}
}
