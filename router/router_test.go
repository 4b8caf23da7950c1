package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/internal/test"
	"github.com/oddsfeed/go-uofsdk/metrics"
	"github.com/oddsfeed/go-uofsdk/router"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type savedDto struct {
	id        urn.URN
	item      any
	lang      string
	dtoType   dto.Type
	requester string
}

type mockSaver struct {
	saved chan savedDto
}

func newMockSaver() *mockSaver {
	return &mockSaver{saved: make(chan savedDto, 16)}
}

func (s *mockSaver) SaveDto(_ context.Context, id urn.URN, item any, lang string, dtoType dto.Type, requester string) error {
	s.saved <- savedDto{id, item, lang, dtoType, requester}
	return nil
}

var critical = router.Request{Path: router.Critical, Requester: "events"}
var nonCritical = router.Request{Path: router.NonCritical, Requester: "events"}

func newRouter(t *testing.T, baseURL string, saver router.DtoSaver, opts ...router.Option) *router.Router {
	opts = append([]router.Option{router.WithRetryMax(0)}, opts...)
	r, err := router.New(baseURL, saver, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestGetFixture(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:12345678")
	api.Handle("/sports/en/sport_events/sr:match:12345678/fixture.xml", test.FixtureXML(id, "en", test.FixtureOptions{}))
	api.Handle("/sports/en/sport_events/sr:match:12345678/fixture_change_fixture.xml", test.FixtureXML(id, "en", test.FixtureOptions{Name: "Changed"}))

	saver := newMockSaver()
	mc := metrics.New(nil)
	r := newRouter(t, api.URL, saver, router.WithMetrics(mc))
	raw, cancel := r.OnRawAPIData()
	defer cancel()

	f, err := r.GetFixture(context.Background(), critical, id, "en", false)
	require.NoError(t, err)
	require.Equal(t, id, f.ID)

	select {
	case ev := <-raw:
		require.Equal(t, id, ev.EventID)
		require.Equal(t, "en", ev.Language)
		require.Equal(t, api.URL+"/sports/en/sport_events/sr:match:12345678/fixture.xml", ev.URL)
		require.NotEmpty(t, ev.Payload)
		require.Equal(t, router.Critical, ev.Path)
	case <-time.After(time.Second):
		t.Fatal("no raw api data event")
	}

	select {
	case s := <-saver.saved:
		require.Equal(t, id, s.id)
		require.Equal(t, dto.TypeFixture, s.dtoType)
		require.Equal(t, "events", s.requester)
		require.Same(t, f, s.item)
	case <-time.After(time.Second):
		t.Fatal("dto not saved")
	}

	f, err = r.GetFixture(context.Background(), critical, id, "en", true)
	require.NoError(t, err)
	require.Equal(t, "Changed", f.Name)
	require.Equal(t, 1, api.Calls("/sports/en/sport_events/sr:match:12345678/fixture_change_fixture.xml"))

	require.Equal(t, 1.0, testutil.ToFloat64(mc.APIRequests.WithLabelValues("fixture", "critical", "success")))
}

func TestExecutionPaths(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:1")
	r := newRouter(t, api.URL, nil)

	_, err := r.GetSportEventSummary(context.Background(), critical, id, "en")
	require.True(t, apierror.IsNotFound(err))

	v, err := r.GetSportEventSummary(context.Background(), nonCritical, id, "en")
	require.NoError(t, err)
	require.Nil(t, v)

	api.Handle("/sports/en/sport_events/sr:match:1/summary.xml", "<match_summary")
	_, err = r.GetSportEventSummary(context.Background(), critical, id, "en")
	var derr *apierror.DeserializationError
	require.ErrorAs(t, err, &derr)

	api.Handle("/sports/en/sport_events/sr:match:1/summary.xml", test.MatchSummaryXML(id, "en", "sr:sport:1", "live"))
	v, err = r.GetSportEventSummary(context.Background(), nonCritical, id, "en")
	require.NoError(t, err)
	require.IsType(t, &dto.SportEventSummary{}, v)
}

func TestNonCriticalTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	r := newRouter(t, ts.URL, nil, router.WithTimeouts(time.Second, 20*time.Millisecond))
	start := time.Now()
	f, err := r.GetFixture(context.Background(), nonCritical, urn.MustParse("sr:match:1"), "en", false)
	require.NoError(t, err)
	require.Nil(t, f)
	require.Less(t, time.Since(start), time.Second)
}

func TestCollapseConcurrentRequests(t *testing.T) {
	id := urn.MustParse("sr:match:5")
	doc := test.FixtureXML(id, "en", test.FixtureOptions{})
	var calls atomic.Int32
	gate := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-gate
		w.Write([]byte(doc))
	}))
	defer ts.Close()

	saver := newMockSaver()
	r := newRouter(t, ts.URL, saver)
	raw, cancel := r.OnRawAPIData()
	defer cancel()

	var wg sync.WaitGroup
	results := make([]*dto.Fixture, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := r.GetFixture(context.Background(), critical, id, "en", false)
			if err != nil {
				panic(err)
			}
			results[i] = f
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, f := range results {
		require.Equal(t, id, f.ID)
	}
	// Published and distributed once only.
	select {
	case <-raw:
	case <-time.After(time.Second):
		t.Fatal("raw data not published")
	}
	select {
	case <-saver.saved:
	case <-time.After(time.Second):
		t.Fatal("dto not saved")
	}
	select {
	case <-saver.saved:
		t.Fatal("dto saved more than once")
	case <-raw:
		t.Fatal("raw data published more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGetCompetitorProfile(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:competitor:1001")
	api.Handle("/sports/en/competitors/sr:competitor:1001/profile.xml",
		`<competitor_profile><competitor id="sr:competitor:1001" name="Home"/></competitor_profile>`)
	api.Handle("/sports/de/competitors/sr:competitor:1001/profile.xml",
		`<competitor_profile><competitor id="sr:competitor:1001" name="Heim"/></competitor_profile>`)

	r := newRouter(t, api.URL, nil)
	profiles, err := r.GetCompetitorProfile(context.Background(), critical, id, []string{"en", "de", "fr"})
	require.True(t, apierror.IsNotFound(err))
	require.Len(t, profiles, 2)
	require.Equal(t, "Heim", profiles["de"].Competitor.Name)
}

func TestLotteryEndpoints(t *testing.T) {
	api := test.NewAPIServer(t)
	api.Handle("/wns/en/lotteries/wns:lottery:1/schedule.xml",
		`<lottery_schedule><lottery id="wns:lottery:1" name="Lotto"/><draw_events><draw_event id="wns:draw:2"/></draw_events></lottery_schedule>`)
	api.Handle("/wns/en/sport_events/wns:draw:2/summary.xml",
		`<draw_summary><draw_fixture id="wns:draw:2" status="open"/></draw_summary>`)
	api.Handle("/wns/en/sport_events/wns:draw:2/fixture.xml",
		`<draw_fixtures><draw_fixture id="wns:draw:2" status="open" display_id="3"/></draw_fixtures>`)

	r := newRouter(t, api.URL, nil)
	l, err := r.GetLotterySchedule(context.Background(), critical, urn.MustParse("wns:lottery:1"), "en")
	require.NoError(t, err)
	require.Equal(t, "Lotto", l.Name)

	d, err := r.GetDrawSummary(context.Background(), critical, urn.MustParse("wns:draw:2"), "en")
	require.NoError(t, err)
	require.Equal(t, "open", d.Status)

	d, err = r.GetDrawFixture(context.Background(), critical, urn.MustParse("wns:draw:2"), "en")
	require.NoError(t, err)
	require.Equal(t, 3, d.DisplayID)
}

func TestClosed(t *testing.T) {
	r, err := router.New("http://localhost", nil)
	require.NoError(t, err)
	raw, _ := r.OnRawAPIData()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.GetFixture(context.Background(), critical, urn.MustParse("sr:match:1"), "en", false)
	require.ErrorIs(t, err, router.ErrClosed)
	_, open := <-raw
	require.False(t, open)
}
