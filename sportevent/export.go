package sportevent

import (
	"fmt"
	"time"

	"github.com/oddsfeed/go-uofsdk/urn"
)

// ExportVersion is the version of the Export format written by this package.
const ExportVersion = 1

// Export is a self-contained snapshot of a cache item. Exactly one of Event,
// Draw and Lottery is set, according to Kind.
type Export struct {
	Version          int      `json:"version"`
	ID               urn.URN  `json:"id"`
	Kind             Kind     `json:"kind"`
	Languages        []string `json:"languages,omitempty"`
	FixtureLanguages []string `json:"fixture_languages,omitempty"`
	// ForcedFixtureLanguages are the languages whose fixture changed since
	// it was last fetched.
	ForcedFixtureLanguages []string `json:"forced_fixture_languages,omitempty"`
	// StatusStale is set when the event status must be fetched again.
	StatusStale bool         `json:"status_stale,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Event       *EventData   `json:"event,omitempty"`
	Draw        *DrawData    `json:"draw,omitempty"`
	Lottery     *LotteryData `json:"lottery,omitempty"`
}

// fromExport rebuilds an item from a snapshot without fetching anything.
func fromExport(x *Export, e *env) (Item, error) {
	if x == nil {
		return nil, fmt.Errorf("nil export")
	}
	if x.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %d for %s", x.Version, x.ID)
	}
	if x.ID.IsZero() {
		return nil, fmt.Errorf("export has no id")
	}
	if kind := KindOf(x.ID); kind != x.Kind {
		return nil, fmt.Errorf("export kind %q does not match id %s", x.Kind, x.ID)
	}

	switch x.Kind {
	case KindDraw:
		d := newDraw(x.ID, e)
		if x.Draw != nil {
			d.data = *x.Draw.clone()
		}
		d.languages = toSet(x.Languages)
		d.updatedAt = x.UpdatedAt
		return d, nil
	case KindLottery:
		l := newLottery(x.ID, e)
		if x.Lottery != nil {
			l.data = *x.Lottery.clone()
		}
		l.languages = toSet(x.Languages)
		l.updatedAt = x.UpdatedAt
		return l, nil
	}

	ev := newEventItem(x.ID, x.Kind, e)
	if x.Event != nil {
		ev.data = *x.Event.clone()
	}
	ev.languages = toSet(x.Languages)
	ev.fixtureLangs = toSet(x.FixtureLanguages)
	ev.forceLangs = toSet(x.ForcedFixtureLanguages)
	ev.statusStale = x.StatusStale
	ev.updatedAt = x.UpdatedAt
	return wrap(ev), nil
}

// wrap returns the exported item type for ev's kind.
func wrap(ev *eventItem) Item {
	switch ev.kind {
	case KindMatch:
		return &Match{ev}
	case KindStage:
		return &Stage{ev}
	case KindTournament:
		return &Tournament{ev}
	}
	return &SportEvent{ev}
}

// newItem creates a stub item for id.
func newItem(id urn.URN, e *env) Item {
	switch kind := KindOf(id); kind {
	case KindDraw:
		return newDraw(id, e)
	case KindLottery:
		return newLottery(id, e)
	default:
		return wrap(newEventItem(id, kind, e))
	}
}
