package sportevent_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/cachemanager"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/internal/test"
	"github.com/oddsfeed/go-uofsdk/restapi"
	"github.com/oddsfeed/go-uofsdk/router"
	"github.com/oddsfeed/go-uofsdk/sportevent"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

func summaryPath(id urn.URN, lang string) string {
	return fmt.Sprintf("/sports/%s/sport_events/%s/summary.xml", lang, id)
}

func fixturePath(id urn.URN, lang string) string {
	return fmt.Sprintf("/sports/%s/sport_events/%s/fixture.xml", lang, id)
}

func changeFixturePath(id urn.URN, lang string) string {
	return fmt.Sprintf("/sports/%s/sport_events/%s/fixture_change_fixture.xml", lang, id)
}

func newCache(t *testing.T, api *test.APIServer, opts ...sportevent.Option) *sportevent.Cache {
	r, err := router.New(api.URL, nil, router.WithRetryMax(0))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	opts = append([]sportevent.Option{
		sportevent.WithStrategy(apierror.Throw),
		sportevent.WithSweepInterval(0),
	}, opts...)
	c, err := sportevent.New(r, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func decodeFixture(t *testing.T, id urn.URN, lang string, o test.FixtureOptions) *dto.Fixture {
	f, err := restapi.DecodeFixture([]byte(test.FixtureXML(id, lang, o)))
	require.NoError(t, err)
	return f
}

func TestGetEventSportID(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:12345678")
	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "not_started"))
	c := newCache(t, api)

	sportID, err := c.GetEventSportID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:1"), sportID)
	require.Equal(t, 1, api.Calls(summaryPath(id, "en")))

	sportID, err = c.GetEventSportID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:1"), sportID)
	require.Equal(t, 1, api.TotalCalls())
}

func TestGetEventSportIDNotFound(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:404")

	c := newCache(t, api)
	_, err := c.GetEventSportID(context.Background(), id)
	var nf *apierror.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, id.String(), nf.Key)

	caught := newCache(t, api, sportevent.WithStrategy(apierror.Catch), sportevent.WithName("caught"))
	sportID, err := caught.GetEventSportID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, sportID.IsZero())
}

func TestConcurrentReadsFetchOnce(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:1")
	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "not_started"))
	c := newCache(t, api)

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match, ok := item.(*sportevent.Match)
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := match.Name(context.Background(), "en")
			if err != nil || name != "Event 1 en" {
				panic(fmt.Sprintf("unexpected name %q: %v", name, err))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, api.Calls(summaryPath(id, "en")))
}

func TestLoadStateAndLanguages(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:2")
	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "not_started"))
	api.Handle(summaryPath(id, "de"), test.MatchSummaryXML(id, "de", "sr:sport:1", "not_started"))
	c := newCache(t, api, sportevent.WithLanguages("en", "de"))

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	require.Equal(t, sportevent.Stub, item.LoadState())
	require.Equal(t, sportevent.KindMatch, item.Kind())

	match := item.(*sportevent.Match)
	_, err = match.Name(context.Background(), "en")
	require.NoError(t, err)
	require.Equal(t, sportevent.PartiallyLoaded, item.LoadState())

	competitors, err := match.Competitors(context.Background())
	require.NoError(t, err)
	require.Equal(t, sportevent.FullyLoaded, item.LoadState())
	require.Equal(t, []string{"de", "en"}, item.Languages())
	require.Len(t, competitors, 2)
	require.Equal(t, "Home de", competitors[0].Names["de"])
	require.Equal(t, "Home en", competitors[0].Names["en"])
	require.Equal(t, "home", competitors[0].Qualifier)
}

func TestMergeKeepsKnownFields(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:stage:7")
	c := newCache(t, api)
	ctx := context.Background()

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	stage, ok := item.(*sportevent.Stage)
	require.True(t, ok)

	f := decodeFixture(t, id, "en", test.FixtureOptions{
		StageType:  "race",
		References: map[string]string{"betradar": "42"},
	})
	require.NoError(t, stage.Merge(ctx, f, "en", true))

	summary, err := restapi.DecodeSummary([]byte(test.StageSummaryXML(id, "en", "")))
	require.NoError(t, err)
	require.NoError(t, stage.Merge(ctx, summary, "en", true))

	stageType, err := stage.StageType(ctx)
	require.NoError(t, err)
	require.Equal(t, "race", stageType)

	parent, err := stage.ParentStage(ctx)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:stage:1000"), parent)

	refs, err := stage.References(ctx)
	require.NoError(t, err)
	require.Equal(t, "42", refs["betradar"])

	name, err := stage.Name(ctx, "en")
	require.NoError(t, err)
	require.Equal(t, "Stage en", name)

	scheduledEnd, err := stage.ScheduledEnd(ctx)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC), scheduledEnd.UTC())
	require.Zero(t, api.TotalCalls())
}

func TestMergeRejectsOtherID(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:3")
	c := newCache(t, api)

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)

	other := decodeFixture(t, urn.MustParse("sr:match:4"), "en", test.FixtureOptions{})
	err = item.Merge(context.Background(), other, "en", true)
	require.ErrorIs(t, err, apierror.ErrInvalidOperation)
	require.Equal(t, sportevent.Stub, item.LoadState())

	err = item.Merge(context.Background(), &dto.Lottery{ID: id}, "en", false)
	require.ErrorIs(t, err, apierror.ErrInvalidOperation)
}

func TestConcurrentMergesDistinctIDs(t *testing.T) {
	api := test.NewAPIServer(t)
	c := newCache(t, api, sportevent.WithPoolSize(4))
	ids := test.RandomURNs(t, "match", 50)

	fixtures := make([]*dto.Fixture, len(ids))
	for i, id := range ids {
		fixtures[i] = decodeFixture(t, id, "en", test.FixtureOptions{
			References: map[string]string{"lugas": id.String()},
		})
	}

	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := c.CacheAddDto(context.Background(), ids[i], fixtures[i], "en", dto.TypeFixture)
			if err != nil || !ok {
				panic(fmt.Sprintf("cannot add %s: %v", ids[i], err))
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		item, err := c.GetEventCacheItem(id)
		require.NoError(t, err)
		match := item.(*sportevent.Match)
		name, err := match.Name(context.Background(), "en")
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Event %d en", id.ID), name)
		lugas, err := match.LugasID(context.Background())
		require.NoError(t, err)
		require.Equal(t, id.String(), lugas)
	}
	require.Zero(t, api.TotalCalls())
}

func TestLugasIDSurvivesExport(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:5")
	c := newCache(t, api)
	ctx := context.Background()

	f := decodeFixture(t, id, "en", test.FixtureOptions{
		References: map[string]string{"lugas": "123456789"},
		Home:       "Bayern",
		Away:       "Salzburg",
	})
	ok, err := c.CacheAddDto(ctx, id, f, "en", dto.TypeFixture)
	require.NoError(t, err)
	require.True(t, ok)

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match := item.(*sportevent.Match)
	refs, err := match.References(ctx)
	require.NoError(t, err)
	require.Equal(t, "123456789", refs["lugas"])
	lugas, err := match.LugasID(ctx)
	require.NoError(t, err)
	require.Equal(t, "123456789", lugas)

	exports, err := c.Export()
	require.NoError(t, err)
	require.Len(t, exports, 1)

	restored := newCache(t, api, sportevent.WithName("restored"))
	n, err := restored.Import(exports)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	item, err = restored.GetEventCacheItem(id)
	require.NoError(t, err)
	require.Equal(t, []string{"en"}, item.Languages())
	match = item.(*sportevent.Match)
	lugas, err = match.LugasID(ctx)
	require.NoError(t, err)
	require.Equal(t, "123456789", lugas)

	competitors, err := match.Competitors(ctx)
	require.NoError(t, err)
	require.Len(t, competitors, 2)
	require.Equal(t, "Bayern", competitors[0].Names["en"])

	tournament, err := match.Tournament(ctx)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:tournament:35"), tournament.ID)

	detached, err := restored.FromExport(exports[0])
	require.NoError(t, err)
	require.Equal(t, id, detached.ID())
	require.Equal(t, sportevent.KindMatch, detached.Kind())
	require.Equal(t, 1, restored.Len())
	require.Zero(t, api.TotalCalls())

	venue, err := match.Venue(ctx)
	require.NoError(t, err)
	require.Equal(t, "Allianz Arena", venue.Names["en"])

	orig, err := c.Export()
	require.NoError(t, err)
	again, err := restored.Export()
	require.NoError(t, err)
	require.Equal(t, orig, again)
	require.Zero(t, api.TotalCalls())
}

func TestImportRejectsBadExport(t *testing.T) {
	api := test.NewAPIServer(t)
	c := newCache(t, api)

	n, err := c.Import([]*sportevent.Export{
		{Version: 99, ID: urn.MustParse("sr:match:1"), Kind: sportevent.KindMatch},
		{Version: sportevent.ExportVersion, ID: urn.MustParse("sr:match:2"), Kind: sportevent.KindDraw},
		{Version: sportevent.ExportVersion, ID: urn.MustParse("sr:match:3"), Kind: sportevent.KindMatch, Languages: []string{"en"}},
	})
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.True(t, c.CacheHasItem(urn.MustParse("sr:match:3"), cachemanager.ItemSportEvent))
	require.False(t, c.CacheHasItem(urn.MustParse("sr:match:2"), cachemanager.ItemAll))
}

func TestInvalidateFixture(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:6")
	changePath := fmt.Sprintf("/sports/en/sport_events/%s/fixture_change_fixture.xml", id)
	api.Handle(fixturePath(id, "en"), test.FixtureXML(id, "en", test.FixtureOptions{}))
	api.Handle(changePath, test.FixtureXML(id, "en", test.FixtureOptions{Scheduled: "2024-05-02T18:00:00+00:00"}))
	c := newCache(t, api)
	ctx := context.Background()

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match := item.(*sportevent.Match)

	fixture, err := match.Fixture(ctx)
	require.NoError(t, err)
	require.NotNil(t, fixture)
	_, err = match.Fixture(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, api.Calls(fixturePath(id, "en")))

	c.InvalidateFixture(id)
	_, err = match.Fixture(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, api.Calls(changePath))
	require.Equal(t, 1, api.Calls(fixturePath(id, "en")))

	scheduled, err := match.Scheduled(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, scheduled.Day())
}

func TestInvalidateStatus(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:7")
	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "live"))
	c := newCache(t, api)
	ctx := context.Background()

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match := item.(*sportevent.Match)

	status, err := match.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "live", status.Status)

	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "closed"))
	status, err = match.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "live", status.Status)
	require.Equal(t, 1, api.Calls(summaryPath(id, "en")))

	c.InvalidateStatus(id)
	status, err = match.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "closed", status.Status)
	require.Equal(t, 2, api.Calls(summaryPath(id, "en")))
}

func TestInvalidateFixtureForcesEveryLanguage(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:16")
	langs := []string{"en", "de"}
	for _, lang := range langs {
		api.Handle(fixturePath(id, lang), test.FixtureXML(id, lang, test.FixtureOptions{}))
		api.Handle(changeFixturePath(id, lang), test.FixtureXML(id, lang, test.FixtureOptions{}))
	}
	c := newCache(t, api, sportevent.WithLanguages(langs...))
	ctx := context.Background()

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match := item.(*sportevent.Match)

	_, err = match.Fixture(ctx)
	require.NoError(t, err)
	c.InvalidateFixture(id)
	_, err = match.Fixture(ctx)
	require.NoError(t, err)

	for _, lang := range langs {
		require.Equal(t, 1, api.Calls(fixturePath(id, lang)), lang)
		require.Equal(t, 1, api.Calls(changeFixturePath(id, lang)), lang)
	}
}

func TestExportKeepsPendingRefreshes(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:17")
	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "live"))
	api.Handle(fixturePath(id, "en"), test.FixtureXML(id, "en", test.FixtureOptions{}))
	api.Handle(changeFixturePath(id, "en"), test.FixtureXML(id, "en", test.FixtureOptions{}))
	c := newCache(t, api)
	ctx := context.Background()

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match := item.(*sportevent.Match)
	_, err = match.Status(ctx)
	require.NoError(t, err)
	_, err = match.Fixture(ctx)
	require.NoError(t, err)

	c.InvalidateStatus(id)
	c.InvalidateFixture(id)
	exports, err := c.Export()
	require.NoError(t, err)
	require.Len(t, exports, 1)
	require.True(t, exports[0].StatusStale)
	require.Equal(t, []string{"en"}, exports[0].ForcedFixtureLanguages)

	restored := newCache(t, api, sportevent.WithName("restored"))
	_, err = restored.Import(exports)
	require.NoError(t, err)
	item, err = restored.GetEventCacheItem(id)
	require.NoError(t, err)
	match = item.(*sportevent.Match)

	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "closed"))
	status, err := match.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "closed", status.Status)
	require.Equal(t, 2, api.Calls(summaryPath(id, "en")))

	_, err = match.Fixture(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, api.Calls(changeFixturePath(id, "en")))
	require.Equal(t, 1, api.Calls(fixturePath(id, "en")))
}

func TestReturnedDataIsDetached(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:18")
	c := newCache(t, api)
	ctx := context.Background()

	home, away := 2.0, 1.0
	summary := &dto.SportEventSummary{
		ID:   id,
		Name: "Bayern vs Salzburg",
		Competitors: []dto.Competitor{
			{ID: urn.MustParse("sr:competitor:1"), Name: "Bayern", Qualifier: "home"},
			{ID: urn.MustParse("sr:competitor:2"), Name: "Salzburg", Qualifier: "away"},
		},
		Status: &dto.EventStatus{Status: "live", HomeScore: &home, AwayScore: &away},
	}
	ok, err := c.CacheAddDto(ctx, id, summary, "en", dto.TypeMatchSummary)
	require.NoError(t, err)
	require.True(t, ok)
	home = 9

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	match := item.(*sportevent.Match)

	status, err := match.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 2.0, *status.HomeScore)
	*status.AwayScore = 7
	status.Status = "closed"

	competitors, err := match.Competitors(ctx)
	require.NoError(t, err)
	require.Len(t, competitors, 2)
	competitors[0].Names["en"] = "changed"

	status, err = match.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "live", status.Status)
	require.Equal(t, 1.0, *status.AwayScore)
	competitors, err = match.Competitors(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bayern", competitors[0].Names["en"])
	require.Zero(t, api.TotalCalls())
}

func TestDrawAndLottery(t *testing.T) {
	api := test.NewAPIServer(t)
	drawID := urn.MustParse("wns:draw:10")
	lotteryID := urn.MustParse("wns:lottery:1")
	api.Handle("/wns/en/sport_events/wns:draw:10/summary.xml", test.DrawSummaryXML)
	api.Handle("/wns/en/lotteries/wns:lottery:1/schedule.xml", test.LotteryScheduleXML)
	c := newCache(t, api)
	ctx := context.Background()

	item, err := c.GetEventCacheItem(drawID)
	require.NoError(t, err)
	draw, ok := item.(*sportevent.Draw)
	require.True(t, ok)

	status, err := draw.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "finished", status)
	results, err := draw.Results(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, sportevent.FullyLoaded, draw.LoadState())

	sportID, err := c.GetEventSportID(ctx, drawID)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:108"), sportID)

	item, err = c.GetEventCacheItem(lotteryID)
	require.NoError(t, err)
	lottery := item.(*sportevent.Lottery)
	draws, err := lottery.ScheduledDraws(ctx)
	require.NoError(t, err)
	require.Equal(t, []urn.URN{drawID, urn.MustParse("wns:draw:11")}, draws)
	name, err := lottery.Name(ctx, "en")
	require.NoError(t, err)
	require.Equal(t, "Lotto 6/49", name)
	require.Equal(t, 2, api.Calls("/wns/en/lotteries/wns:lottery:1/schedule.xml"))
}

func TestTournament(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:tournament:35")
	api.Handle(fmt.Sprintf("/sports/en/tournaments/%s/info.xml", id), `<tournament_info>
  <tournament id="sr:tournament:35" name="Bundesliga">
    <sport id="sr:sport:1" name="Soccer"/>
    <category id="sr:category:30" name="Germany" country_code="DEU"/>
    <current_season id="sr:season:100" name="Season 23/24" start_date="2023-08-01" end_date="2024-06-01" year="23/24"/>
  </tournament>
</tournament_info>`)
	c := newCache(t, api)
	ctx := context.Background()

	item, err := c.GetEventCacheItem(id)
	require.NoError(t, err)
	tournament, ok := item.(*sportevent.Tournament)
	require.True(t, ok)

	category, err := tournament.Category(ctx)
	require.NoError(t, err)
	require.Equal(t, "Germany", category.Names["en"])
	season, err := tournament.CurrentSeason(ctx)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:season:100"), season.ID)
	sportID, err := c.GetEventSportID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:1"), sportID)
	require.Equal(t, 1, api.TotalCalls())

	require.True(t, c.CacheHasItem(id, cachemanager.ItemTournament))
	require.False(t, c.CacheHasItem(id, cachemanager.ItemSportEvent))
	c.CacheDeleteItem(id, cachemanager.ItemSportEvent)
	require.True(t, c.CacheHasItem(id, cachemanager.ItemAll))
	c.CacheDeleteItem(id, cachemanager.ItemTournament)
	require.False(t, c.CacheHasItem(id, cachemanager.ItemAll))
}

func TestCacheManagerDistribution(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:8")
	api.Handle(summaryPath(id, "en"), test.MatchSummaryXML(id, "en", "sr:sport:1", "not_started"))

	manager := cachemanager.New()
	r, err := router.New(api.URL, manager, router.WithRetryMax(0))
	require.NoError(t, err)

	first, err := sportevent.New(r, sportevent.WithName("first"), sportevent.WithSweepInterval(0))
	require.NoError(t, err)
	defer first.Close()
	second, err := sportevent.New(r, sportevent.WithName("second"), sportevent.WithSweepInterval(0))
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, manager.Register(first))
	require.NoError(t, manager.Register(second))

	_, err = first.GetEventSportID(context.Background(), id)
	require.NoError(t, err)
	// Close waits for the router to hand the summary to the other cache.
	require.NoError(t, r.Close())

	require.True(t, second.CacheHasItem(id, cachemanager.ItemSportEvent))
	sportID, err := second.GetEventSportID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:1"), sportID)
	require.Equal(t, 1, api.TotalCalls())
}
