// Package sportevent caches sport events, tournaments, draws and lotteries.
//
// Items start as stubs known by id only. Each getter fetches, through the
// data router, whatever languages the item is missing and merges the result.
// Fetches and merges for one id are serialized by a semaphore pool, so that
// concurrent readers of a new event cause a single REST request per language.
//
// Merging is monotonic: a document that omits a field keeps the value
// merged before. The cache also receives, through the cache manager,
// documents fetched on behalf of other caches.
package sportevent

import (
	"context"
	"errors"

	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/cachemanager"
	"github.com/oddsfeed/go-uofsdk/cachestore"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/metrics"
	"github.com/oddsfeed/go-uofsdk/sempool"
	"github.com/oddsfeed/go-uofsdk/urn"
)

var log = logging.Logger("sportevent")

var ErrClosed = errors.New("sport event cache closed")

var dtoTypes = []dto.Type{
	dto.TypeSportEventSummary,
	dto.TypeMatchSummary,
	dto.TypeStageSummary,
	dto.TypeFixture,
	dto.TypeTournamentInfo,
	dto.TypeDraw,
	dto.TypeLottery,
}

// Cache holds sport event items.
type Cache struct {
	env     *env
	store   *cachestore.Store[Item]
	metrics *metrics.Collectors
}

var _ cachemanager.Cache = (*Cache)(nil)

// New creates a Cache that fetches missing data through router.
func New(router DataRouter, options ...Option) (*Cache, error) {
	if router == nil {
		return nil, errors.New("nil data router")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	pool, err := sempool.New(opts.poolSize)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		env: &env{
			cacheName: opts.name,
			router:    router,
			pool:      pool,
			languages: opts.languages,
			strategy:  opts.strategy,
			clock:     opts.clock,
		},
		metrics: opts.metrics,
	}
	c.store, err = cachestore.New(
		cachestore.WithName[Item](opts.name),
		cachestore.WithClock[Item](opts.clock),
		cachestore.WithCapacity[Item](opts.capacity),
		cachestore.WithDefaultExpiration[Item](0, opts.sliding),
		cachestore.WithSweepInterval[Item](opts.sweepInterval),
		cachestore.WithEvictionHandler(c.evicted))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Name() string {
	return c.env.cacheName
}

// Languages returns the default languages.
func (c *Cache) Languages() []string {
	return append([]string(nil), c.env.languages...)
}

func (c *Cache) DtoTypes() []dto.Type {
	return append([]dto.Type(nil), dtoTypes...)
}

// GetEventCacheItem returns the item for id, creating a stub if the id is
// not cached. Creating a stub does not fetch anything.
func (c *Cache) GetEventCacheItem(id urn.URN) (Item, error) {
	if id.IsZero() {
		return nil, apierror.InvalidArgument("empty event id")
	}
	item, found, err := c.store.GetOrAdd(id.String(), func() (Item, error) {
		return newItem(id, c.env), nil
	})
	if err != nil {
		if errors.Is(err, cachestore.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	if found {
		c.metrics.CacheHit(c.env.cacheName)
	} else {
		c.metrics.CacheMiss(c.env.cacheName)
		c.metrics.SetCacheItems(c.env.cacheName, c.store.Len())
	}
	return item, nil
}

// GetEventSportID returns the sport of the event, fetching the event
// summary in the first default language if the sport is not yet known.
func (c *Cache) GetEventSportID(ctx context.Context, id urn.URN) (urn.URN, error) {
	item, err := c.GetEventCacheItem(id)
	if err != nil {
		return urn.URN{}, err
	}
	sportID, err := item.sportID(ctx)
	if err = c.env.handle(err, "Cannot get sport id of event", "id", id); err != nil {
		return urn.URN{}, err
	}
	return sportID, nil
}

// CacheAddDto merges a document fetched by another component into the
// matching item, creating the item if needed.
func (c *Cache) CacheAddDto(ctx context.Context, id urn.URN, item any, language string, dtoType dto.Type) (bool, error) {
	if !accepts(dtoType) {
		return false, nil
	}
	if _, ok := dto.ID(item); !ok {
		return false, nil
	}
	ci, err := c.GetEventCacheItem(id)
	if err != nil {
		return false, err
	}
	if err = ci.Merge(ctx, item, language, true); err != nil {
		return false, err
	}
	return true, nil
}

// CacheDeleteItem removes the item for id if it is of itemType.
func (c *Cache) CacheDeleteItem(id urn.URN, itemType cachemanager.ItemType) {
	if !matchesType(id, itemType) {
		return
	}
	if _, err := c.store.Delete(id.String()); err != nil {
		log.Debugw("Cannot delete cache item", "id", id, "err", err)
	}
}

// CacheHasItem reports whether an item of itemType is cached for id.
func (c *Cache) CacheHasItem(id urn.URN, itemType cachemanager.ItemType) bool {
	if !matchesType(id, itemType) {
		return false
	}
	_, ok := c.store.Get(id.String())
	return ok
}

// InvalidateFixture makes the next fixture read of id fetch a fresh
// fixture. It is called when a fixture change is received.
func (c *Cache) InvalidateFixture(id urn.URN) {
	if item, ok := c.store.Get(id.String()); ok {
		item.ResetFixture()
		log.Debugw("Fixture invalidated", "id", id)
	}
}

// InvalidateStatus drops the status of id. It is called when a bet
// settlement is received.
func (c *Cache) InvalidateStatus(id urn.URN) {
	if item, ok := c.store.Get(id.String()); ok {
		item.InvalidateStatus()
		log.Debugw("Status invalidated", "id", id)
	}
}

// Export returns snapshots of all cached items that hold data. Stubs are
// skipped.
func (c *Cache) Export() ([]*Export, error) {
	all, err := cachestore.ExportAll[*Export](c.store)
	out := all[:0]
	for _, x := range all {
		if len(x.Languages) != 0 {
			out = append(out, x)
		}
	}
	return out, err
}

// FromExport rebuilds an item bound to this cache without adding it to the
// cache. Nothing is fetched until a getter needs a missing language.
func (c *Cache) FromExport(x *Export) (Item, error) {
	return fromExport(x, c.env)
}

// Import adds items rebuilt from snapshots, replacing cached items with the
// same id. Nothing is fetched. It returns the number of items imported.
func (c *Cache) Import(exports []*Export) (int, error) {
	n, err := cachestore.ImportAll(c.store, exports, func(x *Export) (string, Item, error) {
		item, err := fromExport(x, c.env)
		if err != nil {
			return "", nil, err
		}
		return item.ID().String(), item, nil
	})
	if errors.Is(err, cachestore.ErrClosed) {
		return n, ErrClosed
	}
	c.metrics.SetCacheItems(c.env.cacheName, c.store.Len())
	log.Infow("Imported cache items", "cache", c.env.cacheName, "count", n)
	return n, err
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Close releases the cache. Items obtained before Close remain readable but
// cannot fetch.
func (c *Cache) Close() error {
	err := c.store.Close()
	c.env.pool.Close()
	return err
}

func (c *Cache) evicted(key string, _ Item, reason cachestore.EvictionReason) {
	if reason == cachestore.Replaced {
		return
	}
	log.Debugw("Cache item evicted", "cache", c.env.cacheName, "id", key, "reason", reason)
	c.metrics.CacheEvicted(c.env.cacheName, reason.String())
	c.metrics.SetCacheItems(c.env.cacheName, c.store.Len())
}

func accepts(t dto.Type) bool {
	for _, dt := range dtoTypes {
		if dt == t {
			return true
		}
	}
	return false
}

func matchesType(id urn.URN, itemType cachemanager.ItemType) bool {
	switch itemType {
	case cachemanager.ItemAll:
		return true
	case cachemanager.ItemSportEvent:
		kind := KindOf(id)
		return kind != KindTournament && kind != KindLottery
	case cachemanager.ItemTournament:
		return KindOf(id) == KindTournament
	case cachemanager.ItemLottery:
		return KindOf(id) == KindLottery
	}
	return false
}
