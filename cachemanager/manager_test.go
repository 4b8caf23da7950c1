package cachemanager_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oddsfeed/go-uofsdk/cachemanager"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	name  string
	types []dto.Type
	err   error

	mu      sync.Mutex
	added   map[urn.URN]string
	deleted []urn.URN
}

func newMockCache(name string, types ...dto.Type) *mockCache {
	return &mockCache{name: name, types: types, added: make(map[urn.URN]string)}
}

func (c *mockCache) Name() string         { return c.name }
func (c *mockCache) DtoTypes() []dto.Type { return c.types }

func (c *mockCache) CacheAddDto(_ context.Context, id urn.URN, _ any, lang string, _ dto.Type) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added[id] = lang
	return true, nil
}

func (c *mockCache) CacheDeleteItem(id urn.URN, _ cachemanager.ItemType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, id)
}

func (c *mockCache) CacheHasItem(id urn.URN, _ cachemanager.ItemType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.added[id]
	return ok
}

func TestSaveDto(t *testing.T) {
	m := cachemanager.New()
	events := newMockCache("events", dto.TypeFixture, dto.TypeMatchSummary)
	profiles := newMockCache("profiles", dto.TypeCompetitorProfile, dto.TypeFixture)
	require.NoError(t, m.Register(events))
	require.NoError(t, m.Register(profiles))
	require.Error(t, m.Register(newMockCache("events")))
	require.Equal(t, []string{"events", "profiles"}, m.Caches())

	id := urn.MustParse("sr:match:1")
	require.NoError(t, m.SaveDto(context.Background(), id, &dto.Fixture{}, "en", dto.TypeFixture, "events"))
	require.False(t, events.CacheHasItem(id, cachemanager.ItemAll))
	require.Equal(t, "en", profiles.added[id])
	require.True(t, m.HasItem(id, cachemanager.ItemAll))

	require.NoError(t, m.SaveDto(context.Background(), id, nil, "en", dto.TypeMatchSummary, ""))
	require.False(t, events.CacheHasItem(id, cachemanager.ItemAll))

	errBroken := errors.New("broken")
	broken := newMockCache("broken", dto.TypeMatchSummary)
	broken.err = errBroken
	require.NoError(t, m.Register(broken))
	err := m.SaveDto(context.Background(), id, &dto.SportEventSummary{}, "de", dto.TypeMatchSummary, "")
	require.ErrorIs(t, err, errBroken)
	require.Equal(t, "de", events.added[id])
}

func TestRemoveCacheItem(t *testing.T) {
	m := cachemanager.New()
	a := newMockCache("a")
	b := newMockCache("b")
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))

	id := urn.MustParse("sr:match:2")
	m.RemoveCacheItem(id, cachemanager.ItemSportEvent, "a")
	require.Empty(t, a.deleted)
	require.Equal(t, []urn.URN{id}, b.deleted)
}
