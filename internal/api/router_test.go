package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/historylens/internal/message"
	"github.com/sanspareilsmyn/historylens/internal/publish"
	"github.com/sanspareilsmyn/historylens/internal/series"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type staticSource []message.Observation

func (s staticSource) Fetch(context.Context, string, time.Time, time.Time, bool) ([]message.Observation, error) {
	return s, nil
}

func newControllers(t *testing.T) []*series.Controller {
	t.Helper()
	logger := zaptest.NewLogger(t)

	src := staticSource{
		{State: "1", LastChanged: baseTime.Add(-90 * time.Minute)},
		{State: "3", LastChanged: baseTime.Add(-30 * time.Minute)},
	}
	raw, err := series.NewController(series.Options{EntityID: "sensor.a", Index: 0, HoursToShow: 2, Func: series.FuncRaw}, src, nil, logger)
	require.NoError(t, err)
	raw.SetEntityState(&message.EntityState{EntityID: "sensor.a", State: "3"})
	require.True(t, raw.Refresh(context.Background(), baseTime.Add(-2*time.Hour), baseTime))

	idle, err := series.NewController(series.Options{
		EntityID: "sensor.b", Index: 1, HoursToShow: 1,
		Func: series.FuncMaximum, BucketSize: 10 * time.Minute, Fill: series.FillNull,
	}, src, nil, logger)
	require.NoError(t, err)

	return []*series.Controller{raw, idle}
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListSeries(t *testing.T) {
	h := NewRouter(newControllers(t), zaptest.NewLogger(t))

	rec := serve(t, h, "/series")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []SeriesSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, "sensor.a", got[0].EntityID)
	assert.Equal(t, "raw", got[0].Func)
	assert.Equal(t, 2, got[0].Points)
	require.NotNil(t, got[0].LastValue)
	assert.Equal(t, 3.0, *got[0].LastValue)
	assert.True(t, got[0].End.Equal(baseTime))

	assert.Equal(t, "max", got[1].Func)
	assert.Zero(t, got[1].Points)
	assert.Nil(t, got[1].LastValue)
}

func TestGetSeries(t *testing.T) {
	h := NewRouter(newControllers(t), zaptest.NewLogger(t))

	rec := serve(t, h, "/series/0")
	require.Equal(t, http.StatusOK, rec.Code)
	var update publish.ChartUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &update))
	assert.Equal(t, "sensor.a", update.EntityID)
	assert.Equal(t, []series.Point{
		series.NewPoint(baseTime.Add(-90*time.Minute).UnixMilli(), 1),
		series.NewPoint(baseTime.Add(-30*time.Minute).UnixMilli(), 3),
	}, update.Points)

	assert.Equal(t, http.StatusNotFound, serve(t, h, "/series/7").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "/series/abc").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewRouter(newControllers(t), zaptest.NewLogger(t))

	rec := serve(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","series":2,"ready":1}`, rec.Body.String())

	rec = serve(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "historylens_refresh_total")
}

func TestServerStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
