package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanspareilsmyn/historylens/internal/message"
	"github.com/sanspareilsmyn/historylens/internal/publish"
	"github.com/sanspareilsmyn/historylens/internal/series"
)

// StateSource reports the current host state of an entity. A nil state with
// a nil error means the host does not know the entity.
type StateSource interface {
	State(ctx context.Context, entityID string) (*message.EntityState, error)
}

// Refresher periodically refreshes every controller over its trailing window
// and forwards successful results downstream.
type Refresher struct {
	interval    time.Duration
	concurrency int
	states      StateSource
	controllers []*series.Controller
	output      chan<- publish.ChartUpdate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRefresher creates a Refresher. concurrency bounds simultaneous refreshes.
func NewRefresher(interval time.Duration, concurrency int, states StateSource, controllers []*series.Controller, output chan<- publish.ChartUpdate, logger *zap.Logger) *Refresher {
	logger.Info("Refresher initialized",
		zap.Duration("interval", interval),
		zap.Int("concurrency", concurrency),
		zap.Int("series", len(controllers)),
	)
	return &Refresher{
		interval:    interval,
		concurrency: concurrency,
		states:      states,
		controllers: controllers,
		output:      output,
		logger:      logger,
		now:         time.Now,
	}
}

// Run refreshes once immediately, then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	sugar := r.logger.Sugar()
	sugar.Info("Starting refresh loop...")
	defer sugar.Info("Refresh loop stopped.")

	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case tickTime := <-ticker.C:
			sugar.Debugw("Ticker fired, refreshing series", "tick_time", tickTime)
			r.RefreshAll(ctx)

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping refresher.")
			return ctx.Err()
		}
	}
}

// RefreshAll refreshes every controller and returns how many produced a series.
func (r *Refresher) RefreshAll(ctx context.Context) int {
	end := r.now()
	updated := make([]bool, len(r.controllers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range r.controllers {
		g.Go(func() error {
			updated[i] = r.refreshOne(gctx, c, end)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range updated {
		if ok {
			n++
		}
	}
	r.logger.Debug("Refresh round complete", zap.Int("updated", n), zap.Int("series", len(r.controllers)))
	return n
}

func (r *Refresher) refreshOne(ctx context.Context, c *series.Controller, end time.Time) bool {
	st, err := r.states.State(ctx, c.EntityID())
	if err != nil {
		// Keep the last known state; the history fetch may still succeed.
		r.logger.Warn("Failed to read entity state", zap.String("entity_id", c.EntityID()), zap.Error(err))
	} else {
		c.SetEntityState(st)
	}

	start := end.Add(-time.Duration(c.HoursToShow() * float64(time.Hour)))
	if !c.Refresh(ctx, start, end) {
		return false
	}

	update := publish.NewChartUpdate(c)
	select {
	case r.output <- update:
	default:
		r.logger.Warn("Refresher output channel full, dropping update",
			zap.String("entity_id", update.EntityID),
			zap.Int("index", update.Index),
		)
	}
	return true
}
