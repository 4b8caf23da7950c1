package uofsdk_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	uofsdk "github.com/oddsfeed/go-uofsdk"
	"github.com/oddsfeed/go-uofsdk/config"
	"github.com/oddsfeed/go-uofsdk/exportstore/dsstore"
	"github.com/oddsfeed/go-uofsdk/feed"
	"github.com/oddsfeed/go-uofsdk/internal/test"
	"github.com/oddsfeed/go-uofsdk/recovery"
	"github.com/oddsfeed/go-uofsdk/statestore"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	recoveryPath = "/v1/LO/recovery/initiate_request"
	acceptedXML  = `<response response_code="ACCEPTED"><action>Request for LO recovery accepted</action></response>`
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig(api *test.APIServer) *config.Config {
	cfg := config.Default()
	cfg.AccessToken = "token"
	cfg.APIHost = strings.TrimPrefix(api.URL, "http://")
	cfg.UseSSL = false
	cfg.ExceptionHandlingStrategy = "throw"
	cfg.Producers = []config.Producer{{ID: 1, Name: "LO", Scopes: "live"}}
	cfg.HTTP.RetryMax = 0
	cfg.Recovery.CheckInterval = 0
	cfg.Cache.SweepInterval = 0
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := uofsdk.New(nil)
	require.Error(t, err)

	cfg := config.Default()
	_, err = uofsdk.New(cfg)
	require.ErrorContains(t, err, "access token")
}

func TestOpenClose(t *testing.T) {
	ctx := context.Background()
	api := test.NewAPIServer(t)
	api.HandleStatus(recoveryPath, http.StatusAccepted, acceptedXML)
	match := urn.MustParse("sr:match:1")
	summaryPath := fmt.Sprintf("/v1/sports/en/sport_events/%s/summary.xml", match)
	api.Handle(summaryPath, test.MatchSummaryXML(match, "en", "sr:sport:1", "not_started"))

	clk := clock.NewMock()
	clk.Set(now)
	states, err := statestore.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { states.Close() })
	before := now.Add(-30 * time.Minute)
	require.NoError(t, states.SaveTimestamps(ctx, map[int]time.Time{1: before}))
	exports := dsstore.New(dssync.MutexWrap(datastore.NewMapDatastore()))

	sdk, err := uofsdk.New(testConfig(api),
		uofsdk.WithClock(clk),
		uofsdk.WithRegisterer(prometheus.NewRegistry()),
		uofsdk.WithStateStore(states),
		uofsdk.WithExportStore(exports))
	require.NoError(t, err)
	require.Equal(t, []string{"SportEventCache"}, sdk.CacheManager().Caches())

	changes, cancelChanges := sdk.OnStatusChange()
	defer cancelChanges()
	messages, cancelMessages := sdk.OnMessage()
	defer cancelMessages()

	src := feed.NewChanSource(16)
	require.NoError(t, sdk.Open(ctx, src))
	require.Error(t, sdk.Open(ctx, src))
	require.True(t, sdk.Producers().Locked())
	require.Equal(t, 1, api.Calls(recoveryPath))
	require.True(t, sdk.Recovery().Recovering(1))
	info := sdk.Producers().Get(1).Recovery
	require.NotNil(t, info)
	require.Equal(t, before, info.After)

	requestID := sdk.Recovery().RequestID(1)
	require.True(t, src.Publish("-.-.-.snapshot_complete.-.-.-.-",
		[]byte(fmt.Sprintf(`<snapshot_complete product="1" timestamp="1714564800000" request_id="%d"/>`, requestID))))
	select {
	case change := <-changes:
		require.Equal(t, 1, change.ProducerID)
		require.False(t, change.Down)
		require.Equal(t, recovery.FirstRecoveryCompleted, change.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("no status change")
	}
	require.False(t, sdk.Producers().Get(1).IsProducerDown)

	require.True(t, src.Publish("hi.-.live.fixture_change.1.sr:match.1.-",
		[]byte(`<fixture_change event_id="sr:match:1" product="1" timestamp="1714564801000" change_type="2"/>`)))
	select {
	case d := <-messages:
		fc, ok := d.Message.(*feed.FixtureChange)
		require.True(t, ok)
		require.Equal(t, match, fc.Event())
	case <-time.After(5 * time.Second):
		t.Fatal("no message")
	}

	sportID, err := sdk.SportEvents().GetEventSportID(ctx, match)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:1"), sportID)
	require.Equal(t, 1, api.Calls(summaryPath))

	require.NoError(t, sdk.Close(ctx))
	require.NoError(t, sdk.Close(ctx))
	require.ErrorIs(t, sdk.Open(ctx, src), uofsdk.ErrClosed)

	saved, err := states.LoadTimestamps(ctx)
	require.NoError(t, err)
	require.Equal(t, time.UnixMilli(1714564801000).UTC(), saved[1])

	stored, err := exports.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, match, stored[0].ID)

	// A new instance starts from the saved state without refetching.
	clk.Add(time.Minute)
	next, err := uofsdk.New(testConfig(api),
		uofsdk.WithClock(clk),
		uofsdk.WithStateStore(states),
		uofsdk.WithExportStore(exports))
	require.NoError(t, err)
	require.NoError(t, next.Open(ctx, feed.NewChanSource(1)))
	t.Cleanup(func() { next.Close(context.Background()) })

	require.Equal(t, time.UnixMilli(1714564801000).UTC(), next.Producers().Get(1).Recovery.After)
	sportID, err = next.SportEvents().GetEventSportID(ctx, match)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:1"), sportID)
	require.Equal(t, 1, api.Calls(summaryPath))
	require.Equal(t, 2, api.Calls(recoveryPath))
}
