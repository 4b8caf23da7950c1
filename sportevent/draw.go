package sportevent

import (
	"context"
	"time"

	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
)

// Draw is a cached lottery draw. Draw documents are not localized, so a
// draw is loaded once in the first default language.
type Draw struct {
	baseItem
	data DrawData
}

func newDraw(id urn.URN, e *env) *Draw {
	return &Draw{baseItem: newBaseItem(id, e)}
}

func (d *Draw) Kind() Kind {
	return KindDraw
}

// LoadState reports FullyLoaded once the draw has been fetched in any
// language.
func (d *Draw) LoadState() LoadState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.languages) == 0 {
		return Stub
	}
	return FullyLoaded
}

func (d *Draw) Merge(ctx context.Context, item any, language string, useLock bool) error {
	if err := checkID(d.id, item); err != nil {
		return err
	}
	x, ok := item.(*dto.Draw)
	if !ok {
		return unsupported(d.id, item)
	}
	if useLock {
		unlock, err := d.lock(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}
	d.merge(x, language)
	return nil
}

func (d *Draw) merge(x *dto.Draw, lang string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !x.LotteryID.IsZero() {
		d.data.LotteryID = x.LotteryID
	}
	if x.Status != "" {
		d.data.Status = x.Status
	}
	if x.DisplayID != 0 {
		d.data.DisplayID = x.DisplayID
	}
	if !x.Scheduled.IsZero() {
		d.data.Scheduled = x.Scheduled
	}
	if len(x.Results) != 0 {
		d.data.Results = append([]dto.DrawResult(nil), x.Results...)
	}
	d.markLoaded(lang)
}

func (d *Draw) fetch(ctx context.Context, lang string) error {
	x, err := d.env.router.GetDrawSummary(ctx, d.env.request(), d.id, lang)
	if err != nil {
		return notFound(d.id, err)
	}
	if x == nil {
		return nil
	}
	if err = checkID(d.id, x); err != nil {
		return err
	}
	d.merge(x, lang)
	return nil
}

func (d *Draw) loaded(string) bool {
	return len(d.languages) != 0
}

func (d *Draw) read(ctx context.Context, fn func(data *DrawData)) error {
	err := d.load(ctx, d.firstLanguage(), d.loaded, d.fetch)
	if err = d.env.handle(err, "Cannot load draw", "id", d.id); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(&d.data)
	return nil
}

// SportID returns the sport of the lottery the draw belongs to. The lottery
// schedule is fetched the first time.
func (d *Draw) SportID(ctx context.Context) (urn.URN, error) {
	id, err := d.sportID(ctx)
	if err = d.env.handle(err, "Cannot load sport id", "id", d.id); err != nil {
		return urn.URN{}, err
	}
	return id, nil
}

func (d *Draw) sportID(ctx context.Context) (urn.URN, error) {
	if err := d.load(ctx, d.firstLanguage(), d.loaded, d.fetch); err != nil {
		return urn.URN{}, err
	}
	d.mu.RLock()
	sportID, lotteryID := d.data.SportID, d.data.LotteryID
	d.mu.RUnlock()
	if !sportID.IsZero() || lotteryID.IsZero() {
		return sportID, nil
	}

	lottery, err := d.env.router.GetLotterySchedule(ctx, d.env.request(), lotteryID, d.env.languages[0])
	if err != nil {
		return urn.URN{}, notFound(lotteryID, err)
	}
	if lottery == nil {
		return urn.URN{}, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.SportID = lottery.Sport.ID
	return d.data.SportID, nil
}

func (d *Draw) LotteryID(ctx context.Context) (urn.URN, error) {
	var out urn.URN
	err := d.read(ctx, func(data *DrawData) {
		out = data.LotteryID
	})
	return out, err
}

func (d *Draw) Status(ctx context.Context) (string, error) {
	var out string
	err := d.read(ctx, func(data *DrawData) {
		out = data.Status
	})
	return out, err
}

func (d *Draw) DisplayID(ctx context.Context) (int, error) {
	var out int
	err := d.read(ctx, func(data *DrawData) {
		out = data.DisplayID
	})
	return out, err
}

func (d *Draw) Scheduled(ctx context.Context) (time.Time, error) {
	var out time.Time
	err := d.read(ctx, func(data *DrawData) {
		out = data.Scheduled
	})
	return out, err
}

func (d *Draw) Results(ctx context.Context) ([]dto.DrawResult, error) {
	var out []dto.DrawResult
	err := d.read(ctx, func(data *DrawData) {
		out = append(out, data.Results...)
	})
	return out, err
}

// ResetFixture does nothing; draws are refreshed through InvalidateStatus.
func (d *Draw) ResetFixture() {}

// InvalidateStatus forgets the draw so that the next read fetches it again.
func (d *Draw) InvalidateStatus() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.languages = make(map[string]struct{})
}

func (d *Draw) Export() (*Export, error) {
	return d.export(), nil
}

func (d *Draw) export() *Export {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &Export{
		Version:   ExportVersion,
		ID:        d.id,
		Kind:      KindDraw,
		Languages: sortedKeys(d.languages),
		UpdatedAt: d.updatedAt,
		Draw:      d.data.clone(),
	}
}
