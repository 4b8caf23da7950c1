package sportevent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/router"
	"github.com/oddsfeed/go-uofsdk/sempool"
	"github.com/oddsfeed/go-uofsdk/urn"
)

// LoadState tells how much of an item's data has been fetched.
type LoadState int

const (
	// Stub items are known by id only.
	Stub LoadState = iota
	// PartiallyLoaded items hold data in some of the default languages.
	PartiallyLoaded
	// FullyLoaded items hold data in every default language.
	FullyLoaded
)

func (s LoadState) String() string {
	switch s {
	case PartiallyLoaded:
		return "partially_loaded"
	case FullyLoaded:
		return "fully_loaded"
	}
	return "stub"
}

// Kind is the type of a cache item.
type Kind string

const (
	KindMatch      Kind = "match"
	KindStage      Kind = "stage"
	KindTournament Kind = "tournament"
	KindSportEvent Kind = "sport_event"
	KindDraw       Kind = "draw"
	KindLottery    Kind = "lottery"
)

// KindOf returns the kind of item that represents id.
func KindOf(id urn.URN) Kind {
	switch id.TypeGroup() {
	case urn.Match:
		return KindMatch
	case urn.Stage:
		return KindStage
	case urn.Tournament, urn.BasicTournament, urn.Season:
		return KindTournament
	case urn.Draw:
		return KindDraw
	case urn.Lottery:
		return KindLottery
	}
	return KindSportEvent
}

// DataRouter fetches the documents cache items are built from.
type DataRouter interface {
	GetSportEventSummary(ctx context.Context, req router.Request, id urn.URN, language string) (any, error)
	GetFixture(ctx context.Context, req router.Request, id urn.URN, language string, forceRefresh bool) (*dto.Fixture, error)
	GetTournamentInfo(ctx context.Context, req router.Request, id urn.URN, language string) (*dto.TournamentInfo, error)
	GetDrawSummary(ctx context.Context, req router.Request, id urn.URN, language string) (*dto.Draw, error)
	GetDrawFixture(ctx context.Context, req router.Request, id urn.URN, language string) (*dto.Draw, error)
	GetLotterySchedule(ctx context.Context, req router.Request, id urn.URN, language string) (*dto.Lottery, error)
}

// Item is a cached sport event.
type Item interface {
	ID() urn.URN
	Kind() Kind
	LoadState() LoadState
	// Languages returns the languages whose data has been merged.
	Languages() []string
	// Merge merges a DTO fetched in language. With useLock, the merge is
	// serialized with every other fetch and merge for the same id.
	Merge(ctx context.Context, item any, language string, useLock bool) error
	// Export returns a snapshot of the item from which it can be rebuilt
	// without fetching.
	Export() (*Export, error)
	// ResetFixture makes the next fixture read fetch a fresh fixture.
	ResetFixture()
	// InvalidateStatus drops the event status so that the next read
	// fetches it again.
	InvalidateStatus()

	sportID(ctx context.Context) (urn.URN, error)
	export() *Export
}

// env is shared by all items of a cache.
type env struct {
	cacheName string
	router    DataRouter
	pool      *sempool.Pool
	languages []string
	strategy  apierror.Strategy
	clock     clock.Clock
}

func (e *env) request() router.Request {
	return router.Request{Path: router.Critical, Requester: e.cacheName}
}

func (e *env) handle(err error, msg string, keysAndValues ...any) error {
	return e.strategy.Handle(err, log, msg, keysAndValues...)
}

// baseItem holds what all items have in common. Fields are guarded by mu.
// Fetching and merging are serialized per id by the semaphore pool.
type baseItem struct {
	id  urn.URN
	env *env

	mu        sync.RWMutex
	languages map[string]struct{}
	updatedAt time.Time
}

func newBaseItem(id urn.URN, e *env) baseItem {
	return baseItem{
		id:        id,
		env:       e,
		languages: make(map[string]struct{}),
	}
}

func (b *baseItem) ID() urn.URN {
	return b.id
}

func (b *baseItem) Languages() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.languages)
}

func (b *baseItem) LoadState() LoadState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.languages) == 0 {
		return Stub
	}
	for _, lang := range b.env.languages {
		if _, ok := b.languages[lang]; !ok {
			return PartiallyLoaded
		}
	}
	return FullyLoaded
}

// lock serializes work on the item's id with all other fetches and merges
// for that id.
func (b *baseItem) lock(ctx context.Context) (func(), error) {
	key := b.id.String()
	unit, err := b.env.pool.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	if err = unit.Lock(ctx); err != nil {
		_ = b.env.pool.Release(key)
		return nil, err
	}
	return func() {
		unit.Unlock()
		if err := b.env.pool.Release(key); err != nil {
			log.Errorw("Cannot release item lock", "id", key, "err", err)
		}
	}, nil
}

// load fetches each language of langs for which loaded reports false. The
// check is repeated once the item lock is held, so concurrent callers fetch
// each language once.
func (b *baseItem) load(ctx context.Context, langs []string, loaded func(lang string) bool, fetch func(ctx context.Context, lang string) error) error {
	pending := func() []string {
		b.mu.RLock()
		defer b.mu.RUnlock()
		var out []string
		for _, lang := range langs {
			if !loaded(lang) {
				out = append(out, lang)
			}
		}
		return out
	}
	if len(pending()) == 0 {
		return nil
	}

	unlock, err := b.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	var errs error
	for _, lang := range pending() {
		if err := fetch(ctx, lang); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (b *baseItem) hasLanguage(lang string) bool {
	_, ok := b.languages[lang]
	return ok
}

// langsOrDefault returns langs, or the default languages if langs is empty.
func (b *baseItem) langsOrDefault(langs []string) []string {
	if len(langs) != 0 {
		return langs
	}
	return b.env.languages
}

func (b *baseItem) firstLanguage() []string {
	return b.env.languages[:1]
}

// markLoaded records a merge in lang. The caller must hold the write lock.
func (b *baseItem) markLoaded(lang string) {
	b.languages[lang] = struct{}{}
	b.updatedAt = b.env.clock.Now()
}

func checkID(id urn.URN, item any) error {
	got, ok := dto.ID(item)
	if !ok {
		return apierror.InvalidOperation("unsupported dto %T", item)
	}
	if got != id {
		return apierror.InvalidOperation("cannot merge dto for %s into item %s", got, id)
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(langs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(langs))
	for _, lang := range langs {
		set[lang] = struct{}{}
	}
	return set
}

func unsupported(id urn.URN, item any) error {
	return apierror.InvalidOperation("item %s cannot merge %T", id, item)
}

func notFound(id urn.URN, err error) error {
	if apierror.IsNotFound(err) {
		return &apierror.NotFoundError{Key: id.String(), Err: err}
	}
	return fmt.Errorf("cannot load %s: %w", id, err)
}
