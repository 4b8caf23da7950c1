// Package uofsdk assembles the components of the odds feed SDK.
//
// An SDK owns the REST data router, the cache manager and sport event
// cache, the producer manager, the recovery coordinator and the feed
// dispatcher. Open restores state saved by a previous run and starts
// recovery and dispatch. Close stops everything and saves state for the
// next run.
package uofsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/cachemanager"
	"github.com/oddsfeed/go-uofsdk/config"
	"github.com/oddsfeed/go-uofsdk/dataprovider"
	"github.com/oddsfeed/go-uofsdk/exportstore"
	"github.com/oddsfeed/go-uofsdk/exportstore/redisstore"
	"github.com/oddsfeed/go-uofsdk/feed"
	"github.com/oddsfeed/go-uofsdk/metrics"
	"github.com/oddsfeed/go-uofsdk/producer"
	"github.com/oddsfeed/go-uofsdk/recovery"
	"github.com/oddsfeed/go-uofsdk/router"
	"github.com/oddsfeed/go-uofsdk/sportevent"
	"github.com/oddsfeed/go-uofsdk/statestore"
	"github.com/redis/go-redis/v9"
)

var log = logging.Logger("uofsdk")

var ErrClosed = errors.New("sdk closed")

// StateStore keeps producer timestamps between runs.
type StateStore interface {
	SaveTimestamps(ctx context.Context, timestamps map[int]time.Time) error
	LoadTimestamps(ctx context.Context) (map[int]time.Time, error)
}

// SDK is an assembled SDK instance.
type SDK struct {
	cfg *config.Config

	metrics     *metrics.Collectors
	router      *router.Router
	manager     *cachemanager.Manager
	sportEvents *sportevent.Cache
	producers   *producer.Manager
	recovery    *recovery.Coordinator
	dispatcher  *feed.Dispatcher

	exportStore exportstore.Store
	stateStore  StateStore
	// closers release resources created from the configuration.
	closers []func() error

	mu      sync.Mutex
	opened  bool
	closed  bool
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New builds an SDK from a validated configuration.
func New(cfg *config.Config, options ...Option) (*SDK, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	s := &SDK{
		cfg:         cfg,
		metrics:     metrics.New(opts.registerer),
		manager:     cachemanager.New(),
		exportStore: opts.exportStore,
		stateStore:  opts.stateStore,
	}
	if err = s.build(opts); err != nil {
		s.releaseAll()
		return nil, err
	}
	return s, nil
}

func (s *SDK) build(opts options) error {
	cfg := s.cfg
	baseURL := cfg.APIBaseURL()

	var err error
	s.router, err = router.New(baseURL, s.manager,
		router.WithClient(opts.httpClient),
		router.WithAccessToken(cfg.AccessToken),
		router.WithTimeouts(cfg.HTTP.CriticalTimeout, cfg.HTTP.NonCriticalTimeout),
		router.WithRetryMax(cfg.HTTP.RetryMax),
		router.WithMetrics(s.metrics))
	if err != nil {
		return fmt.Errorf("cannot create data router: %w", err)
	}
	s.closers = append(s.closers, s.router.Close)

	s.sportEvents, err = sportevent.New(s.router,
		sportevent.WithLanguages(cfg.Languages...),
		sportevent.WithStrategy(cfg.Strategy()),
		sportevent.WithPoolSize(cfg.Cache.PoolSize),
		sportevent.WithCapacity(cfg.Cache.Capacity),
		sportevent.WithExpiration(cfg.Cache.SlidingExpiration),
		sportevent.WithSweepInterval(cfg.Cache.SweepInterval),
		sportevent.WithClock(opts.clock),
		sportevent.WithMetrics(s.metrics))
	if err != nil {
		return fmt.Errorf("cannot create sport event cache: %w", err)
	}
	s.closers = append(s.closers, s.sportEvents.Close)
	if err = s.manager.Register(s.sportEvents); err != nil {
		return err
	}

	s.producers, err = producer.NewManager(cfg.ProducerConfigs(), producer.WithClock(opts.clock))
	if err != nil {
		return fmt.Errorf("cannot create producer manager: %w", err)
	}

	fetcher, err := dataprovider.NewFetcher(
		dataprovider.WithClient(opts.httpClient),
		dataprovider.WithAccessToken(cfg.AccessToken),
		dataprovider.WithTimeout(cfg.HTTP.CriticalTimeout))
	if err != nil {
		return err
	}
	s.recovery, err = recovery.New(s.producers, recovery.NewHTTPRequester(fetcher, baseURL),
		recovery.WithClock(opts.clock),
		recovery.WithNodeID(cfg.NodeID),
		recovery.WithMaxExecution(cfg.Recovery.MaxExecution),
		recovery.WithCheckInterval(cfg.Recovery.CheckInterval),
		recovery.WithMetrics(s.metrics))
	if err != nil {
		return fmt.Errorf("cannot create recovery coordinator: %w", err)
	}
	s.closers = append(s.closers, s.recovery.Close)

	s.dispatcher, err = feed.NewDispatcher(s.recovery, s.sportEvents,
		feed.WithProducers(s.producers),
		feed.WithNodeID(cfg.NodeID),
		feed.WithMetrics(s.metrics))
	if err != nil {
		return fmt.Errorf("cannot create dispatcher: %w", err)
	}
	s.closers = append(s.closers, s.dispatcher.Close)

	if s.exportStore == nil && cfg.ExportStore.Type == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.ExportStore.RedisAddr,
			Password: cfg.ExportStore.RedisPassword,
			DB:       cfg.ExportStore.RedisDB,
		})
		s.closers = append(s.closers, client.Close)
		s.exportStore = redisstore.New(client, cfg.ExportStore.Prefix, cfg.ExportStore.TTL)
	}
	if s.stateStore == nil && cfg.StateStore.Driver != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.CriticalTimeout)
		defer cancel()
		var st *statestore.Store
		switch cfg.StateStore.Driver {
		case "postgres":
			st, err = statestore.OpenPostgres(ctx, cfg.StateStore.DSN)
		case "sqlite":
			st, err = statestore.OpenSQLite(ctx, cfg.StateStore.DSN)
		}
		if err != nil {
			return fmt.Errorf("cannot open state store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		s.stateStore = st
	}
	return nil
}

// Config returns the configuration the SDK was built with.
func (s *SDK) Config() *config.Config { return s.cfg }

func (s *SDK) SportEvents() *sportevent.Cache { return s.sportEvents }

func (s *SDK) Producers() *producer.Manager { return s.producers }

func (s *SDK) Recovery() *recovery.Coordinator { return s.recovery }

func (s *SDK) CacheManager() *cachemanager.Manager { return s.manager }

// OnMessage creates a channel that receives every dispatched event message.
func (s *SDK) OnMessage() (<-chan feed.Delivery, context.CancelFunc) {
	return s.dispatcher.OnMessage()
}

// OnStatusChange creates a channel that receives producer status changes.
func (s *SDK) OnStatusChange() (<-chan recovery.StatusChange, context.CancelFunc) {
	return s.recovery.OnStatusChange()
}

// OnRawAPIData creates a channel that receives every document fetched from
// the REST API.
func (s *SDK) OnRawAPIData() (<-chan router.RawAPIData, context.CancelFunc) {
	return s.router.OnRawAPIData()
}

// Open restores saved state, locks the producer configuration, dispatches
// messages from src and requests recovery for every enabled producer. Errors
// from the initial recovery requests are logged; failed producers are
// recovered again by the periodic checks.
func (s *SDK) Open(ctx context.Context, src feed.Source) error {
	if src == nil {
		return errors.New("nil feed source")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.opened {
		return errors.New("sdk already opened")
	}

	s.restoreTimestamps(ctx)
	s.restoreCache(ctx)

	if err := s.producers.Lock(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if err := s.dispatcher.Run(runCtx, src); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("Feed dispatch stopped", "err", err)
		}
	}()

	if err := s.recovery.Start(ctx); err != nil {
		log.Warnw("Initial recovery failed for some producers", "err", err)
	}
	s.opened = true
	log.Infow("SDK opened", "api", s.cfg.APIBaseURL(), "node", s.cfg.NodeID, "languages", s.cfg.Languages)
	return nil
}

func (s *SDK) restoreTimestamps(ctx context.Context) {
	if s.stateStore == nil {
		return
	}
	timestamps, err := s.stateStore.LoadTimestamps(ctx)
	if err != nil {
		log.Warnw("Cannot load producer timestamps", "err", err)
		return
	}
	for id, ts := range timestamps {
		if err = s.producers.AddTimestampBeforeDisconnect(id, ts); err != nil {
			log.Warnw("Ignoring saved producer timestamp", "producer", id, "timestamp", ts, "err", err)
		}
	}
}

func (s *SDK) restoreCache(ctx context.Context) {
	if s.exportStore == nil {
		return
	}
	exports, err := s.exportStore.Load(ctx)
	if err != nil {
		log.Warnw("Some cache exports could not be loaded", "err", err)
	}
	if len(exports) == 0 {
		return
	}
	if _, err = s.sportEvents.Import(exports); err != nil {
		log.Warnw("Some cache exports could not be imported", "err", err)
	}
}

// Close stops dispatch and recovery, saves producer timestamps and the
// sport event cache, and releases all resources. It returns every error
// encountered.
func (s *SDK) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.cancel != nil {
		s.cancel()
	}
	s.running.Wait()

	var errs error
	if s.stateStore != nil && s.opened {
		if err := s.stateStore.SaveTimestamps(ctx, s.producers.Timestamps()); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cannot save producer timestamps: %w", err))
		}
	}
	// Pending distribution must land in the cache before it is exported.
	if err := s.router.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if s.exportStore != nil && s.opened {
		exports, err := s.sportEvents.Export()
		if err == nil {
			err = s.exportStore.Save(ctx, exports)
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cannot save cache export: %w", err))
		}
	}
	if err := s.releaseAll(); err != nil {
		errs = multierror.Append(errs, err)
	}
	log.Info("SDK closed")
	return errs
}

// releaseAll runs the closers in reverse order of creation.
func (s *SDK) releaseAll() error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	s.closers = nil
	return errs
}
