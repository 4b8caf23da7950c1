// Package cachemanager distributes fetched DTOs to every cache interested in
// them, so that a document fetched for one cache is not fetched again for
// another.
package cachemanager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
)

var log = logging.Logger("cachemanager")

// ItemType selects the kind of cache item affected by a removal.
type ItemType int

const (
	ItemAll ItemType = iota
	ItemSportEvent
	ItemTournament
	ItemCompetitor
	ItemLottery
)

// Cache is implemented by caches that accept DTOs from the manager.
type Cache interface {
	// Name uniquely identifies the cache.
	Name() string
	// DtoTypes lists the DTO types the cache accepts.
	DtoTypes() []dto.Type
	// CacheAddDto merges item into the cache. It reports whether the item
	// was used.
	CacheAddDto(ctx context.Context, id urn.URN, item any, language string, dtoType dto.Type) (bool, error)
	CacheDeleteItem(id urn.URN, itemType ItemType)
	CacheHasItem(id urn.URN, itemType ItemType) bool
}

// Manager is a registry of caches.
type Manager struct {
	mu     sync.RWMutex
	caches map[string]Cache
	byType map[dto.Type][]Cache
}

func New() *Manager {
	return &Manager{
		caches: make(map[string]Cache),
		byType: make(map[dto.Type][]Cache),
	}
}

// Register adds a cache. Registering two caches with the same name is an
// error.
func (m *Manager) Register(c Cache) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := c.Name()
	if _, ok := m.caches[name]; ok {
		return fmt.Errorf("cache %s already registered", name)
	}
	m.caches[name] = c
	for _, t := range c.DtoTypes() {
		m.byType[t] = append(m.byType[t], c)
	}
	log.Debugw("Registered cache", "name", name, "types", c.DtoTypes())
	return nil
}

// Caches returns the names of the registered caches.
func (m *Manager) Caches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveDto offers item to every cache that accepts dtoType, except the cache
// named requester which already holds it. Errors from individual caches are
// collected and returned together.
func (m *Manager) SaveDto(ctx context.Context, id urn.URN, item any, language string, dtoType dto.Type, requester string) error {
	if item == nil {
		return nil
	}
	m.mu.RLock()
	targets := append([]Cache(nil), m.byType[dtoType]...)
	m.mu.RUnlock()

	var errs error
	for _, c := range targets {
		if c.Name() == requester {
			continue
		}
		if _, err := c.CacheAddDto(ctx, id, item, language, dtoType); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cache %s: %w", c.Name(), err))
		}
	}
	if errs != nil {
		log.Warnw("Failed to save dto in caches", "id", id, "type", dtoType, "err", errs)
	}
	return errs
}

// RemoveCacheItem removes id from every cache except source.
func (m *Manager) RemoveCacheItem(id urn.URN, itemType ItemType, source string) {
	m.mu.RLock()
	targets := make([]Cache, 0, len(m.caches))
	for name, c := range m.caches {
		if name != source {
			targets = append(targets, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range targets {
		c.CacheDeleteItem(id, itemType)
	}
}

// HasItem reports whether any registered cache holds id.
func (m *Manager) HasItem(id urn.URN, itemType ItemType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.caches {
		if c.CacheHasItem(id, itemType) {
			return true
		}
	}
	return false
}
