package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/api"
	"github.com/sanspareilsmyn/historylens/internal/config"
	"github.com/sanspareilsmyn/historylens/internal/history"
	"github.com/sanspareilsmyn/historylens/internal/publish"
	"github.com/sanspareilsmyn/historylens/internal/series"
	"github.com/sanspareilsmyn/historylens/internal/store"
)

const channelBufferSize = 100

// Pipeline wires the refresher, the emitter and the HTTP API around one
// controller per configured series.
type Pipeline struct {
	controllers []*series.Controller
	refresher   *Refresher
	emitter     *Emitter
	server      *api.Server
	sink        publish.Sink
	store       *store.EntryStore
	logger      *zap.Logger

	updates chan publish.ChartUpdate
}

// New creates the pipeline described by cfg.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")
	initLogger.Debug("Creating pipeline components...")

	client, err := history.New(cfg.History, logger.Named("history"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryClientFailed, err)
	}

	var entryStore *store.EntryStore
	if cacheWanted(cfg) {
		entryStore, err = store.New(cfg.Cache, logger.Named("store"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreCreationFailed, err)
		}
	}

	sink, err := publish.New(cfg.Kafka, logger.Named("publisher"))
	if err != nil {
		closeStore(entryStore)
		return nil, fmt.Errorf("%w: %w", ErrSinkCreationFailed, err)
	}

	p, err := assemble(cfg, client, client, entryStore, sink, logger)
	if err != nil {
		closeStore(entryStore)
		_ = sink.Close()
		return nil, err
	}
	initLogger.Info("Pipeline instance created successfully", zap.Int("series", len(p.controllers)))
	return p, nil
}

// assemble builds controllers and components on top of already constructed dependencies.
func assemble(cfg *config.Config, source series.HistorySource, states StateSource, entryStore *store.EntryStore, sink publish.Sink, logger *zap.Logger) (*Pipeline, error) {
	var cache series.Cache
	if entryStore != nil {
		cache = entryStore
	}

	controllerLogger := logger.Named("controller")
	controllers := make([]*series.Controller, 0, len(cfg.Series))
	for i, sc := range cfg.Series {
		opts, err := sc.Options(i, cfg.Cache.Enabled)
		if err != nil {
			return nil, fmt.Errorf("%w: series[%d]: %w", ErrControllerCreateFailed, i, err)
		}
		c, err := series.NewController(opts, source, cache, controllerLogger)
		if err != nil {
			return nil, fmt.Errorf("%w: series[%d]: %w", ErrControllerCreateFailed, i, err)
		}
		controllers = append(controllers, c)
	}

	updates := make(chan publish.ChartUpdate, channelBufferSize)
	apiLogger := logger.Named("api")
	return &Pipeline{
		controllers: controllers,
		refresher:   NewRefresher(cfg.Refresh.Interval, cfg.Refresh.Concurrency, states, controllers, updates, logger.Named("refresher")),
		emitter:     NewEmitter(sink, updates, logger.Named("emitter")),
		server:      api.NewServer(cfg.HTTP.Addr, api.NewRouter(controllers, apiLogger), apiLogger),
		sink:        sink,
		store:       entryStore,
		logger:      logger.Named("pipeline"),
		updates:     updates,
	}, nil
}

func cacheWanted(cfg *config.Config) bool {
	for _, s := range cfg.Series {
		if s.Cache != nil {
			if *s.Cache {
				return true
			}
			continue
		}
		if cfg.Cache.Enabled {
			return true
		}
	}
	return false
}

func closeStore(s *store.EntryStore) {
	if s != nil {
		s.Close()
	}
}

// Controllers returns the series controllers in configuration order.
func (p *Pipeline) Controllers() []*series.Controller {
	return p.controllers
}

// Run starts all components and waits for them to complete or context cancellation.
// Pending cache writes are flushed before it returns.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	pipelineErr := make(chan error, 3) // refresher, emitter, server

	sugar.Info("Pipeline Run: Starting components...")

	wg.Add(3)
	go p.runRefresher(ctx, &wg, pipelineErr)
	go p.runEmitter(ctx, &wg, pipelineErr)
	go p.runServer(ctx, &wg, pipelineErr)

	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled. Waiting for components to finish...")
		firstErr = ctx.Err()
	case err := <-pipelineErr:
		sugar.Errorw("Pipeline Run: Received error from a component, initiating shutdown...", zap.Error(err))
		firstErr = err
	}
	cancel()

	sugar.Debug("Pipeline Run: Waiting on WaitGroup...")
	wg.Wait()
	p.shutdown()
	sugar.Info("Pipeline Run: All components finished.")

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

func (p *Pipeline) runRefresher(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.updates)
		p.logger.Debug("Updates channel closed")
	}()

	p.logger.Debug("Starting refresher goroutine...")
	if err := p.refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Refresher component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrRefresherRunFailed, err)
	} else {
		p.logger.Debug("Refresher goroutine finished")
	}
}

func (p *Pipeline) runEmitter(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()

	p.logger.Debug("Starting emitter goroutine...")
	if err := p.emitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Emitter component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrEmitterRunFailed, err)
	} else {
		p.logger.Debug("Emitter goroutine finished")
	}
}

func (p *Pipeline) runServer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()

	p.logger.Debug("Starting HTTP API goroutine...")
	if err := p.server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("HTTP API exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrServerRunFailed, err)
	} else {
		p.logger.Debug("HTTP API goroutine finished")
	}
}

func (p *Pipeline) shutdown() {
	for _, c := range p.controllers {
		c.Flush()
	}
	p.logger.Debug("Pending cache writes flushed")

	if err := p.sink.Close(); err != nil {
		p.logger.Warn("Failed to close chart update sink", zap.Error(err))
	}
	closeStore(p.store)
}
