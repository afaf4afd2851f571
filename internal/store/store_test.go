package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/historylens/internal/config"
	"github.com/sanspareilsmyn/historylens/internal/series"
)

func sampleEntry() *series.Entry {
	return &series.Entry{
		HoursToShow: 24,
		LastFetched: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Data: []series.Point{
			series.NewPoint(1000, 21.5),
			series.NullPoint(2000),
			series.NewPoint(3000, -4),
		},
	}
}

func assertEntryEqual(t *testing.T, want, got *series.Entry) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.HoursToShow, got.HoursToShow)
	assert.True(t, want.LastFetched.Equal(got.LastFetched), "last fetched %v != %v", want.LastFetched, got.LastFetched)
	assert.Equal(t, want.Data, got.Data)
}

func TestJSONCodecWireFormat(t *testing.T) {
	b, err := JSONCodec{}.Encode(sampleEntry())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"hours_to_show":24,"last_fetched":"2024-01-01T12:00:00Z","data":[[1000,21.5],[2000,null],[3000,-4]]}`,
		string(b))

	got, err := JSONCodec{}.Decode(b)
	require.NoError(t, err)
	assertEntryEqual(t, sampleEntry(), got)
}

func TestJSONCodecRejectsMalformedPoint(t *testing.T) {
	_, err := JSONCodec{}.Decode([]byte(`{"hours_to_show":1,"data":[[1,2,3]]}`))
	require.ErrorIs(t, err, ErrCorruptEntry)
}

func TestZstdCodec(t *testing.T) {
	z, err := NewZstdCodec()
	require.NoError(t, err)
	defer z.Close()

	b, err := z.Encode(sampleEntry())
	require.NoError(t, err)
	got, err := z.Decode(b)
	require.NoError(t, err)
	assertEntryEqual(t, sampleEntry(), got)

	_, err = z.Decode([]byte("not zstd"))
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestEntryStoreKeyVariants(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)

	raw, err := NewEntryStore(backend, false, zaptest.NewLogger(t))
	require.NoError(t, err)
	compressed, err := NewEntryStore(backend, true, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer compressed.Close()

	require.NoError(t, raw.Set(ctx, "sensor.temp_24", sampleEntry()))
	_, ok, err := backend.Get(ctx, "sensor.temp_24-raw")
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := compressed.Get(ctx, "sensor.temp_24")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, compressed.Set(ctx, "sensor.temp_24", sampleEntry()))
	got, err := compressed.Get(ctx, "sensor.temp_24")
	require.NoError(t, err)
	assertEntryEqual(t, sampleEntry(), got)

	got, err = raw.Get(ctx, "sensor.temp_24")
	require.NoError(t, err)
	assertEntryEqual(t, sampleEntry(), got)

	require.NoError(t, raw.ClearAll(ctx))
	got, err = compressed.Get(ctx, "sensor.temp_24")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntryStoreCorruptPayload(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	require.NoError(t, backend.Set(ctx, "k-raw", []byte("{")))

	s, err := NewEntryStore(backend, false, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestDiskBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := NewDiskBackend(dir)
	require.NoError(t, err)

	_, ok, err := d.Get(ctx, "a/b_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Set(ctx, "a/b_1", []byte("one")))
	require.NoError(t, d.Set(ctx, "c_2-raw", []byte("two")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	b, ok, err := d.Get(ctx, "a/b_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("one"), b)

	require.NoError(t, d.Clear(ctx))
	_, ok, err = d.Get(ctx, "c_2-raw")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(dir, "keep.txt"))
}

func TestNewFromConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)

	s, err := New(config.CacheConfig{Backend: config.CacheBackendDisk, Directory: t.TempDir(), Compress: true}, logger)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(context.Background(), "x_1", sampleEntry()))
	got, err := s.Get(context.Background(), "x_1")
	require.NoError(t, err)
	assertEntryEqual(t, sampleEntry(), got)

	_, err = New(config.CacheConfig{Backend: "redis"}, logger)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
