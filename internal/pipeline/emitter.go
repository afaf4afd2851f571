package pipeline

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/metrics"
	"github.com/sanspareilsmyn/historylens/internal/publish"
	"github.com/sanspareilsmyn/historylens/internal/series"
)

// Emitter records metrics for each chart update and hands it to the sink.
type Emitter struct {
	sink   publish.Sink
	input  <-chan publish.ChartUpdate
	logger *zap.Logger
}

func NewEmitter(sink publish.Sink, input <-chan publish.ChartUpdate, logger *zap.Logger) *Emitter {
	logger.Debug("Emitter initialized")
	return &Emitter{sink: sink, input: input, logger: logger}
}

// Run drains the input until it is closed or ctx is cancelled.
func (e *Emitter) Run(ctx context.Context) error {
	sugar := e.logger.Sugar()
	sugar.Info("Starting emitter loop...")
	defer sugar.Info("Emitter loop stopped.")

	for {
		select {
		case update, ok := <-e.input:
			if !ok {
				sugar.Info("Emitter input channel closed.")
				return nil
			}
			e.processUpdate(ctx, update)

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping emitter.")
			return ctx.Err()
		}
	}
}

func (e *Emitter) processUpdate(ctx context.Context, update publish.ChartUpdate) {
	last, hasLast := series.LastValue(update.Points)
	metrics.ObserveSeries(update.EntityID, strconv.Itoa(update.Index), len(update.Points), last, hasLast)

	if err := e.sink.Publish(ctx, update); err != nil {
		metrics.ObservePublishFailure()
		e.logger.Sugar().Warnw("Failed to publish chart update",
			"entity_id", update.EntityID,
			"index", update.Index,
			zap.Error(err),
		)
	}
}
