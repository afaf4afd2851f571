// Command fakehistory serves a synthetic history API for local runs.
package main

import (
	"flag"
	"hash/fnv"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/history"
	"github.com/sanspareilsmyn/historylens/internal/message"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	addr     = flag.String("addr", ":8123", "Listen address")
	entities = flag.String("entities", "sensor.temperature,sensor.power", "Comma separated entity ids to serve")
	step     = flag.Duration("step", 5*time.Minute, "Spacing of generated state changes")
)

type state struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
}

type fakeHistory struct {
	known  map[string]bool
	step   time.Duration
	logger *zap.Logger
}

func main() {
	flag.Parse()
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	f := &fakeHistory{known: map[string]bool{}, step: *step, logger: logger}
	for _, e := range strings.Split(*entities, ",") {
		if e = strings.TrimSpace(e); e != "" {
			f.known[e] = true
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/history/period", f.period).Methods(http.MethodGet)
	r.HandleFunc("/api/history/period/{start}", f.period).Methods(http.MethodGet)
	r.HandleFunc("/api/states/{entity}", f.state).Methods(http.MethodGet)

	logger.Info("Fake history API listening", zap.String("addr", *addr), zap.Int("entities", len(f.known)), zap.Duration("step", f.step))
	if err := http.ListenAndServe(*addr, handlers.LoggingHandler(os.Stdout, r)); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func (f *fakeHistory) period(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entity := q.Get("filter_entity_id")
	end := time.Now()
	if s := q.Get("end_time"); s != "" {
		if ts, ok := message.ParseTimestamp(s); ok {
			end = ts
		}
	}
	start := end.Add(-24 * time.Hour)
	if s := mux.Vars(r)["start"]; s != "" {
		ts, ok := message.ParseTimestamp(s)
		if !ok {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		start = ts
	}

	out := [][]state{}
	if f.known[entity] {
		out = append(out, f.generate(entity, start, end))
	}
	writeJSON(w, out)
}

func (f *fakeHistory) state(w http.ResponseWriter, r *http.Request) {
	entity := mux.Vars(r)["entity"]
	if !f.known[entity] {
		http.NotFound(w, r)
		return
	}
	now := time.Now().Truncate(f.step)
	writeJSON(w, state{EntityID: entity, State: f.value(entity, now), LastChanged: now.UTC().Format(history.TimeFormat)})
}

// generate returns one state change per step slot inside [start, end).
func (f *fakeHistory) generate(entity string, start, end time.Time) []state {
	var changes []state
	ts := start.Truncate(f.step)
	if ts.Before(start) {
		ts = ts.Add(f.step)
	}
	for ; ts.Before(end); ts = ts.Add(f.step) {
		changes = append(changes, state{
			EntityID:    entity,
			State:       f.value(entity, ts),
			LastChanged: ts.UTC().Format(history.TimeFormat),
		})
	}
	return changes
}

// value is a deterministic daily wave plus noise; about 3% of slots are unavailable.
func (f *fakeHistory) value(entity string, ts time.Time) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(entity))
	slot := ts.UnixMilli() / f.step.Milliseconds()
	rng := rand.New(rand.NewSource(int64(h.Sum64()) ^ slot))
	if rng.Float64() < 0.03 {
		return "unavailable"
	}
	base := float64(h.Sum64()%40) + 10
	day := float64(ts.Unix()%86400) / 86400
	v := base + 5*math.Sin(2*math.Pi*day) + rng.NormFloat64()
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
