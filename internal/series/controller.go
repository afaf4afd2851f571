package series

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/message"
	"github.com/sanspareilsmyn/historylens/internal/metrics"
)

// HistorySource returns raw observations for an entity in time order.
// A zero start means from the beginning, a zero end means up to now.
type HistorySource interface {
	Fetch(ctx context.Context, entityID string, start, end time.Time, skipInitialState bool) ([]message.Observation, error)
}

// Cache is the persistent store of cache entries. Get returns (nil, nil) for a missing key.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	ClearAll(ctx context.Context) error
}

// Options is the resolved configuration of one chart series.
type Options struct {
	EntityID    string
	Index       int
	HoursToShow float64
	Cache       bool
	Func        Func
	BucketSize  time.Duration
	Fill        FillPolicy
}

func (o Options) validate() error {
	if o.EntityID == "" {
		return ErrEmptyEntityID
	}
	if o.HoursToShow <= 0 {
		return ErrInvalidHoursToShow
	}
	if o.Func != FuncRaw && o.BucketSize < time.Millisecond {
		return ErrInvalidBucketSize
	}
	return nil
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides the clock used to stamp cache entries.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the cached and computed series of one configured chart series.
type Controller struct {
	opts        Options
	stepMs      int64
	key         string
	metricIndex string
	source HistorySource
	cache  Cache
	logger *zap.Logger
	now    func() time.Time

	updating atomic.Bool
	pending  sync.WaitGroup

	// lastWrite is closed when the most recently started cache write is done.
	writeMu   sync.Mutex
	lastWrite chan struct{}

	mu          sync.RWMutex
	state       *message.EntityState
	history     *Entry
	computed    []Point
	hasComputed bool
	start, end  time.Time
}

// NewController builds a controller. cache may be nil when opts.Cache is false.
func NewController(opts Options, source HistorySource, cache Cache, logger *zap.Logger, options ...Option) (*Controller, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		opts.Cache = false
	}
	now := time.Now()
	c := &Controller{
		opts:        opts,
		stepMs:      opts.BucketSize.Milliseconds(),
		key:         CacheKey(opts.EntityID, opts.HoursToShow),
		metricIndex: strconv.Itoa(opts.Index),
		source:      source,
		cache:       cache,
		logger:      logger.With(zap.String("entity_id", opts.EntityID), zap.Int("index", opts.Index)),
		now:         time.Now,
		start:       now,
		end:         now,
	}
	for _, o := range options {
		o(c)
	}
	c.logger.Debug("Series controller initialized",
		zap.Stringer("func", opts.Func),
		zap.Duration("bucket_size", opts.BucketSize),
		zap.String("fill", string(opts.Fill)),
		zap.Float64("hours_to_show", opts.HoursToShow),
		zap.Bool("cache", opts.Cache),
	)
	return c, nil
}

// SetEntityState records the current host state of the entity. nil means unknown.
func (c *Controller) SetEntityState(st *message.EntityState) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// EntityID is the entity whose history this controller serves.
func (c *Controller) EntityID() string { return c.opts.EntityID }

// Index is the position of the series in the chart configuration.
func (c *Controller) Index() int { return c.opts.Index }

// Func is the aggregation applied to each bucket.
func (c *Controller) Func() Func { return c.opts.Func }

// HoursToShow is the configured window length in hours.
func (c *Controller) HoursToShow() float64 { return c.opts.HoursToShow }

// Start is the start of the window covered by the last successful refresh.
func (c *Controller) Start() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start
}

// End is the end of the window covered by the last successful refresh.
func (c *Controller) End() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.end
}

// History returns the computed series, or the merged raw series when the
// function is raw. The result is a copy.
func (c *Controller) History() []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.hasComputed {
		return slices.Clone(c.computed)
	}
	if c.history != nil {
		return slices.Clone(c.history.Data)
	}
	return []Point{}
}

// Flush waits for cache writes started by previous refreshes.
func (c *Controller) Flush() {
	c.pending.Wait()
}

// Refresh brings the series up to date for [start, end). It reports whether
// a series is available; failures are logged, never returned.
func (c *Controller) Refresh(ctx context.Context, start, end time.Time) bool {
	c.mu.RLock()
	known := c.state != nil
	c.mu.RUnlock()
	if !known {
		metrics.ObserveRefresh(c.opts.EntityID, c.metricIndex, metrics.OutcomeNoState)
		return false
	}
	if !c.updating.CompareAndSwap(false, true) {
		c.logger.Debug("Refresh already in progress, skipping")
		metrics.ObserveRefresh(c.opts.EntityID, c.metricIndex, metrics.OutcomeBusy)
		return false
	}
	defer c.updating.Store(false)

	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	raw := c.opts.Func == FuncRaw
	plan := Plan(startMs, endMs, c.loadCache(ctx), c.opts.HoursToShow, c.stepMs, raw)

	sugar := c.logger.Sugar()
	sugar.Debugw("Fetching history",
		"fetch_start", time.UnixMilli(plan.FetchStart),
		"fetch_end", end,
		"retained", len(plan.Prior),
		"skip_initial_state", plan.SkipInitialState,
	)

	fetchStart := time.UnixMilli(plan.FetchStart).In(end.Location())
	observations, err := c.source.Fetch(ctx, c.opts.EntityID, fetchStart, end, plan.SkipInitialState)
	if err != nil {
		sugar.Warnw("History fetch failed, continuing with cached data", zap.Error(err))
		observations = nil
	}
	fresh := ToPoints(observations)
	metrics.ObserveFetched(c.opts.EntityID, c.metricIndex, len(fresh))

	merged := plan.Prior
	if len(fresh) > 0 {
		merged = Merge(plan.Prior, fresh)
		c.persist(ctx, &Entry{
			HoursToShow: c.opts.HoursToShow,
			LastFetched: c.now(),
			Data:        merged,
		})
	}
	if len(merged) == 0 {
		sugar.Debugw("No history available for window", "start", start, "end", end)
		metrics.ObserveRefresh(c.opts.EntityID, c.metricIndex, metrics.OutcomeNoData)
		return false
	}

	var computed []Point
	if !raw {
		computed = Compute(Bucketize(merged, plan.StartHistory, endMs, c.stepMs, c.opts.Fill), c.opts.Func)
	}

	c.mu.Lock()
	c.history = &Entry{HoursToShow: c.opts.HoursToShow, LastFetched: c.now(), Data: merged}
	if !raw {
		c.computed = computed
		c.hasComputed = true
	}
	c.start, c.end = start, end
	c.mu.Unlock()

	sugar.Debugw("Refresh complete", "merged", len(merged), "fresh", len(fresh), "computed", len(computed))
	metrics.ObserveRefresh(c.opts.EntityID, c.metricIndex, metrics.OutcomeOK)
	return true
}

func (c *Controller) loadCache(ctx context.Context) *Entry {
	if !c.opts.Cache {
		return nil
	}
	entry, err := c.cache.Get(ctx, c.key)
	switch {
	case err != nil:
		c.logger.Warn("Failed to read series cache, ignoring it", zap.String("key", c.key), zap.Error(err))
		metrics.ObserveCacheLookup(c.opts.EntityID, c.metricIndex, "miss")
		return nil
	case entry == nil:
		metrics.ObserveCacheLookup(c.opts.EntityID, c.metricIndex, "miss")
		return nil
	case entry.HoursToShow != c.opts.HoursToShow:
		metrics.ObserveCacheLookup(c.opts.EntityID, c.metricIndex, "stale")
		return nil
	}
	metrics.ObserveCacheLookup(c.opts.EntityID, c.metricIndex, "hit")
	return entry
}

// persist writes the entry in the background. Writes land in the order they
// were started. A failed write clears the whole store.
func (c *Controller) persist(ctx context.Context, entry *Entry) {
	if !c.opts.Cache {
		return
	}
	ctx = context.WithoutCancel(ctx)

	c.writeMu.Lock()
	prev, done := c.lastWrite, make(chan struct{})
	c.lastWrite = done
	c.writeMu.Unlock()

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		err := c.cache.Set(ctx, c.key, entry)
		if err == nil {
			return
		}
		c.logger.Error("Failed to persist series cache, clearing store", zap.String("key", c.key), zap.Error(err))
		metrics.ObservePersistFailure(c.opts.EntityID, c.metricIndex)
		if err := c.cache.ClearAll(ctx); err != nil {
			c.logger.Error("Failed to clear cache store", zap.Error(err))
		}
	}()
}

// ToPoints converts observations to points; unparseable states become null values.
func ToPoints(observations []message.Observation) []Point {
	points := make([]Point, 0, len(observations))
	for _, o := range observations {
		points = append(points, Point{Timestamp: o.LastChanged.UnixMilli(), Value: o.Value()})
	}
	return points
}
