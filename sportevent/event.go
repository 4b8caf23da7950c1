package sportevent

import (
	"context"
	"time"

	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
)

// eventItem is the item for matches, stages, tournaments and other sport
// events.
type eventItem struct {
	baseItem
	kind Kind

	data         EventData
	fixtureLangs map[string]struct{}
	// forceLangs are the languages whose next fixture fetch must bypass
	// the API's caches.
	forceLangs  map[string]struct{}
	statusStale bool
}

// Match is a cached match.
type Match struct{ *eventItem }

// Stage is a cached stage of a multi-stage event, such as a race.
type Stage struct{ *eventItem }

// Tournament is a cached tournament, simple tournament or season.
type Tournament struct{ *eventItem }

// SportEvent is a cached sport event of any other type.
type SportEvent struct{ *eventItem }

func newEventItem(id urn.URN, kind Kind, e *env) *eventItem {
	return &eventItem{
		baseItem:     newBaseItem(id, e),
		kind:         kind,
		fixtureLangs: make(map[string]struct{}),
		forceLangs:   make(map[string]struct{}),
	}
}

func (e *eventItem) Kind() Kind {
	return e.kind
}

func (e *eventItem) Merge(ctx context.Context, item any, language string, useLock bool) error {
	if err := checkID(e.id, item); err != nil {
		return err
	}
	switch item.(type) {
	case *dto.SportEventSummary, *dto.Fixture, *dto.TournamentInfo:
	default:
		return unsupported(e.id, item)
	}
	if useLock {
		unlock, err := e.lock(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}
	e.merge(item, language)
	return nil
}

func (e *eventItem) merge(item any, lang string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch x := item.(type) {
	case *dto.SportEventSummary:
		e.data.mergeSummary(x, lang)
		e.statusStale = false
	case *dto.Fixture:
		e.data.mergeFixture(x, lang)
		e.fixtureLangs[lang] = struct{}{}
		delete(e.forceLangs, lang)
	case *dto.TournamentInfo:
		e.data.mergeTournamentInfo(x, lang)
	default:
		return
	}
	e.markLoaded(lang)
}

// fetchSummary fetches and merges the summary in lang. The caller must hold
// the item lock.
func (e *eventItem) fetchSummary(ctx context.Context, lang string) error {
	var (
		v   any
		err error
	)
	if e.kind == KindTournament {
		v, err = e.env.router.GetTournamentInfo(ctx, e.env.request(), e.id, lang)
	} else {
		v, err = e.env.router.GetSportEventSummary(ctx, e.env.request(), e.id, lang)
	}
	if err != nil {
		return notFound(e.id, err)
	}
	if v == nil {
		return nil
	}
	if err = checkID(e.id, v); err != nil {
		return err
	}
	e.merge(v, lang)
	return nil
}

// fetchFixture fetches and merges the fixture in lang. The caller must hold
// the item lock.
func (e *eventItem) fetchFixture(ctx context.Context, lang string) error {
	e.mu.RLock()
	_, force := e.forceLangs[lang]
	e.mu.RUnlock()

	f, err := e.env.router.GetFixture(ctx, e.env.request(), e.id, lang, force)
	if err != nil {
		return notFound(e.id, err)
	}
	if f == nil {
		return nil
	}
	if err = checkID(e.id, f); err != nil {
		return err
	}
	e.merge(f, lang)
	return nil
}

func (e *eventItem) loadSummary(ctx context.Context, langs []string) error {
	return e.load(ctx, langs, e.hasLanguage, e.fetchSummary)
}

func (e *eventItem) loadFixture(ctx context.Context, langs []string) error {
	return e.load(ctx, langs, func(lang string) bool {
		_, ok := e.fixtureLangs[lang]
		return ok
	}, e.fetchFixture)
}

// read loads the summary in langs, then calls fn with the read lock held.
func (e *eventItem) read(ctx context.Context, langs []string, fn func(d *EventData)) error {
	err := e.loadSummary(ctx, langs)
	if err = e.env.handle(err, "Cannot load sport event", "id", e.id, "langs", langs); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(&e.data)
	return nil
}

func (e *eventItem) readFixture(ctx context.Context, langs []string, fn func(d *EventData)) error {
	err := e.loadFixture(ctx, langs)
	if err = e.env.handle(err, "Cannot load fixture", "id", e.id, "langs", langs); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(&e.data)
	return nil
}

// Name returns the name of the event in lang, fetching it if needed. The
// name is empty if it is not available.
func (e *eventItem) Name(ctx context.Context, lang string) (string, error) {
	var name string
	err := e.read(ctx, []string{lang}, func(d *EventData) {
		name = d.Names[lang]
	})
	return name, err
}

// SportID returns the id of the sport the event belongs to.
func (e *eventItem) SportID(ctx context.Context) (urn.URN, error) {
	id, err := e.sportID(ctx)
	if err = e.env.handle(err, "Cannot load sport id", "id", e.id); err != nil {
		return urn.URN{}, err
	}
	return id, nil
}

func (e *eventItem) sportID(ctx context.Context) (urn.URN, error) {
	e.mu.RLock()
	id := e.data.SportID
	e.mu.RUnlock()
	if !id.IsZero() {
		return id, nil
	}
	if err := e.loadSummary(ctx, e.firstLanguage()); err != nil {
		return urn.URN{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.data.SportID, nil
}

// Scheduled returns the scheduled start time, or the zero time if unknown.
func (e *eventItem) Scheduled(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		t = d.Scheduled
	})
	return t, err
}

// ScheduledEnd returns the scheduled end time, or the zero time if unknown.
func (e *eventItem) ScheduledEnd(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		t = d.ScheduledEnd
	})
	return t, err
}

// StartTimeTBD reports whether the start time is yet to be determined. It
// is nil if unknown.
func (e *eventItem) StartTimeTBD(ctx context.Context) (*bool, error) {
	var tbd *bool
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		if d.StartTimeTBD != nil {
			v := *d.StartTimeTBD
			tbd = &v
		}
	})
	return tbd, err
}

// Competitors returns the competitors with names in langs, or in the default
// languages if langs is empty.
func (e *eventItem) Competitors(ctx context.Context, langs ...string) ([]CompetitorData, error) {
	var out []CompetitorData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		if len(d.Competitors) != 0 {
			out = cloneCompetitors(d.Competitors)
		}
	})
	return out, err
}

func (e *eventItem) Tournament(ctx context.Context, langs ...string) (*TournamentData, error) {
	var out *TournamentData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.Tournament.clone()
	})
	return out, err
}

func (e *eventItem) Season(ctx context.Context, langs ...string) (*SeasonData, error) {
	var out *SeasonData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.Season.clone()
	})
	return out, err
}

func (e *eventItem) Round(ctx context.Context, langs ...string) (*RoundData, error) {
	var out *RoundData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.Round.clone()
	})
	return out, err
}

func (e *eventItem) Venue(ctx context.Context, langs ...string) (*VenueData, error) {
	var out *VenueData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.Venue.clone()
	})
	return out, err
}

// Status returns the last known status of the event. After the status has
// been invalidated, the summary is fetched again.
func (e *eventItem) Status(ctx context.Context) (*StatusData, error) {
	e.mu.RLock()
	stale := e.statusStale
	e.mu.RUnlock()

	if stale {
		unlock, err := e.lock(ctx)
		if err != nil {
			return nil, e.env.handle(err, "Cannot refresh status", "id", e.id)
		}
		err = e.fetchSummary(ctx, e.env.languages[0])
		unlock()
		if err = e.env.handle(err, "Cannot refresh status", "id", e.id); err != nil {
			return nil, err
		}
	}

	var out *StatusData
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		out = d.Status.clone()
	})
	return out, err
}

// Fixture returns the fixture of the event, making sure that it has been
// fetched in every language of langs, or in the default languages if langs
// is empty.
func (e *eventItem) Fixture(ctx context.Context, langs ...string) (*FixtureData, error) {
	var out *FixtureData
	err := e.readFixture(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.Fixture.clone()
	})
	return out, err
}

// References returns the reference ids of the event, keyed by reference
// name.
func (e *eventItem) References(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := e.readFixture(ctx, e.firstLanguage(), func(d *EventData) {
		if d.Fixture != nil && len(d.Fixture.References) != 0 {
			out = make(map[string]string, len(d.Fixture.References))
			for k, v := range d.Fixture.References {
				out[k] = v
			}
		}
	})
	return out, err
}

// LugasID returns the reference id named "lugas", or an empty string.
func (e *eventItem) LugasID(ctx context.Context) (string, error) {
	refs, err := e.References(ctx)
	if err != nil {
		return "", err
	}
	return refs["lugas"], nil
}

// StageType returns the type of a stage, for example "race".
func (e *eventItem) StageType(ctx context.Context) (string, error) {
	var out string
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		out = d.StageType
	})
	return out, err
}

// ParentStage returns the stage this stage belongs to, or the zero URN.
func (e *eventItem) ParentStage(ctx context.Context) (urn.URN, error) {
	var out urn.URN
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		out = d.ParentStage
	})
	return out, err
}

func (e *eventItem) ChildStages(ctx context.Context) ([]urn.URN, error) {
	var out []urn.URN
	err := e.read(ctx, e.firstLanguage(), func(d *EventData) {
		out = append(out, d.ChildStages...)
	})
	return out, err
}

// Category returns the category of a tournament.
func (e *eventItem) Category(ctx context.Context, langs ...string) (*CategoryData, error) {
	var out *CategoryData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.Category.clone()
		if out == nil && d.Tournament != nil {
			out = d.Tournament.Category.clone()
		}
	})
	return out, err
}

// CurrentSeason returns the current season of a tournament.
func (e *eventItem) CurrentSeason(ctx context.Context, langs ...string) (*SeasonData, error) {
	var out *SeasonData
	err := e.read(ctx, e.langsOrDefault(langs), func(d *EventData) {
		out = d.CurrentSeason.clone()
	})
	return out, err
}

func (e *eventItem) ResetFixture() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for lang := range e.fixtureLangs {
		e.forceLangs[lang] = struct{}{}
	}
	for _, lang := range e.env.languages {
		e.forceLangs[lang] = struct{}{}
	}
	e.fixtureLangs = make(map[string]struct{})
}

func (e *eventItem) InvalidateStatus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data.Status = nil
	e.statusStale = true
}

func (e *eventItem) Export() (*Export, error) {
	return e.export(), nil
}

func (e *eventItem) export() *Export {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &Export{
		Version:                ExportVersion,
		ID:                     e.id,
		Kind:                   e.kind,
		Languages:              sortedKeys(e.languages),
		FixtureLanguages:       sortedKeys(e.fixtureLangs),
		ForcedFixtureLanguages: sortedKeys(e.forceLangs),
		StatusStale:            e.statusStale,
		UpdatedAt:              e.updatedAt,
		Event:                  e.data.clone(),
	}
}
