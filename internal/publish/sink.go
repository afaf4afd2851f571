package publish

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/series"
)

// ChartUpdate is one refreshed series as handed to consumers.
type ChartUpdate struct {
	EntityID string         `json:"entity_id"`
	Index    int            `json:"index"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Func     string         `json:"func"`
	Points   []series.Point `json:"points"`
}

// NewChartUpdate snapshots the current series of c.
func NewChartUpdate(c *series.Controller) ChartUpdate {
	return ChartUpdate{
		EntityID: c.EntityID(),
		Index:    c.Index(),
		Start:    c.Start(),
		End:      c.End(),
		Func:     c.Func().String(),
		Points:   c.History(),
	}
}

// Sink receives chart updates.
type Sink interface {
	Publish(ctx context.Context, update ChartUpdate) error
	Close() error
}

// LogSink writes a summary line per update. Used when no brokers are configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, update ChartUpdate) error {
	fields := []interface{}{
		"entity_id", update.EntityID,
		"index", update.Index,
		"func", update.Func,
		"start", update.Start,
		"end", update.End,
		"points", len(update.Points),
	}
	if last, ok := series.LastValue(update.Points); ok {
		fields = append(fields, "last_value", last)
	}
	s.logger.Sugar().Infow("Chart updated", fields...)
	return nil
}

func (s *LogSink) Close() error { return nil }
