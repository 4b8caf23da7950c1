package sportevent

import (
	"context"

	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
)

// Lottery is a cached lottery.
type Lottery struct {
	baseItem
	data LotteryData
}

func newLottery(id urn.URN, e *env) *Lottery {
	return &Lottery{baseItem: newBaseItem(id, e)}
}

func (l *Lottery) Kind() Kind {
	return KindLottery
}

func (l *Lottery) Merge(ctx context.Context, item any, language string, useLock bool) error {
	if err := checkID(l.id, item); err != nil {
		return err
	}
	x, ok := item.(*dto.Lottery)
	if !ok {
		return unsupported(l.id, item)
	}
	if useLock {
		unlock, err := l.lock(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}
	l.merge(x, language)
	return nil
}

func (l *Lottery) merge(x *dto.Lottery, lang string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := &l.data
	d.Names = d.Names.with(lang, x.Name)
	if !x.Sport.ID.IsZero() {
		d.SportID = x.Sport.ID
	}
	d.Category = mergeCategory(d.Category, &x.Category, lang)
	if x.DrawInfo != nil {
		info := *x.DrawInfo
		d.DrawInfo = &info
	}
	if x.BonusInfo != nil {
		info := *x.BonusInfo
		d.BonusInfo = &info
	}
	if len(x.ScheduledDraws) != 0 {
		d.ScheduledDraws = append([]urn.URN(nil), x.ScheduledDraws...)
	}
	l.markLoaded(lang)
}

func (l *Lottery) fetch(ctx context.Context, lang string) error {
	x, err := l.env.router.GetLotterySchedule(ctx, l.env.request(), l.id, lang)
	if err != nil {
		return notFound(l.id, err)
	}
	if x == nil {
		return nil
	}
	if err = checkID(l.id, x); err != nil {
		return err
	}
	l.merge(x, lang)
	return nil
}

func (l *Lottery) read(ctx context.Context, langs []string, fn func(d *LotteryData)) error {
	err := l.load(ctx, langs, l.hasLanguage, l.fetch)
	if err = l.env.handle(err, "Cannot load lottery", "id", l.id, "langs", langs); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(&l.data)
	return nil
}

func (l *Lottery) Name(ctx context.Context, lang string) (string, error) {
	var name string
	err := l.read(ctx, []string{lang}, func(d *LotteryData) {
		name = d.Names[lang]
	})
	return name, err
}

func (l *Lottery) SportID(ctx context.Context) (urn.URN, error) {
	id, err := l.sportID(ctx)
	if err = l.env.handle(err, "Cannot load sport id", "id", l.id); err != nil {
		return urn.URN{}, err
	}
	return id, nil
}

func (l *Lottery) sportID(ctx context.Context) (urn.URN, error) {
	if err := l.load(ctx, l.firstLanguage(), l.hasLanguage, l.fetch); err != nil {
		return urn.URN{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data.SportID, nil
}

func (l *Lottery) Category(ctx context.Context, langs ...string) (*CategoryData, error) {
	var out *CategoryData
	err := l.read(ctx, l.langsOrDefault(langs), func(d *LotteryData) {
		out = d.Category.clone()
	})
	return out, err
}

func (l *Lottery) DrawInfo(ctx context.Context) (*dto.DrawInfo, error) {
	var out *dto.DrawInfo
	err := l.read(ctx, l.firstLanguage(), func(d *LotteryData) {
		out = clonePtr(d.DrawInfo)
	})
	return out, err
}

func (l *Lottery) BonusInfo(ctx context.Context) (*dto.BonusInfo, error) {
	var out *dto.BonusInfo
	err := l.read(ctx, l.firstLanguage(), func(d *LotteryData) {
		out = clonePtr(d.BonusInfo)
	})
	return out, err
}

// ScheduledDraws returns the ids of the upcoming draws of the lottery.
func (l *Lottery) ScheduledDraws(ctx context.Context) ([]urn.URN, error) {
	var out []urn.URN
	err := l.read(ctx, l.firstLanguage(), func(d *LotteryData) {
		out = append(out, d.ScheduledDraws...)
	})
	return out, err
}

// ResetFixture does nothing; lotteries have no fixture.
func (l *Lottery) ResetFixture() {}

// InvalidateStatus does nothing; lotteries have no status.
func (l *Lottery) InvalidateStatus() {}

func (l *Lottery) Export() (*Export, error) {
	return l.export(), nil
}

func (l *Lottery) export() *Export {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Export{
		Version:   ExportVersion,
		ID:        l.id,
		Kind:      KindLottery,
		Languages: sortedKeys(l.languages),
		UpdatedAt: l.updatedAt,
		Lottery:   l.data.clone(),
	}
}
