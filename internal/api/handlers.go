package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/publish"
	"github.com/sanspareilsmyn/historylens/internal/series"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SeriesSummary describes one served series without its points.
type SeriesSummary struct {
	EntityID    string    `json:"entity_id"`
	Index       int       `json:"index"`
	Func        string    `json:"func"`
	HoursToShow float64   `json:"hours_to_show"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Points      int       `json:"points"`
	LastValue   *float64  `json:"last_value"`
}

type handler struct {
	controllers []*series.Controller
	logger      *zap.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	ready := 0
	for _, c := range h.controllers {
		if len(c.History()) > 0 {
			ready++
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"series": len(h.controllers),
		"ready":  ready,
	})
}

func (h *handler) listSeries(w http.ResponseWriter, _ *http.Request) {
	out := make([]SeriesSummary, 0, len(h.controllers))
	for _, c := range h.controllers {
		points := c.History()
		s := SeriesSummary{
			EntityID:    c.EntityID(),
			Index:       c.Index(),
			Func:        c.Func().String(),
			HoursToShow: c.HoursToShow(),
			Start:       c.Start(),
			End:         c.End(),
			Points:      len(points),
		}
		if last, ok := series.LastValue(points); ok {
			s.LastValue = &last
		}
		out = append(out, s)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) getSeries(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 || index >= len(h.controllers) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "series not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, publish.NewChartUpdate(h.controllers[index]))
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}
