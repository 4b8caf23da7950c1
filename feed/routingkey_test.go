package feed_test

import (
	"testing"

	"github.com/oddsfeed/go-uofsdk/feed"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

func TestParseRoutingKey(t *testing.T) {
	rk, err := feed.ParseRoutingKey("hi.-.live.odds_change.1.sr:match.12345.-")
	require.NoError(t, err)
	require.Equal(t, "hi", rk.Priority)
	require.False(t, rk.PreMatchInterest)
	require.True(t, rk.LiveInterest)
	require.Equal(t, feed.TypeOddsChange, rk.MessageType)
	require.Equal(t, urn.MustParse("sr:sport:1"), *rk.SportID)
	require.Equal(t, urn.MustParse("sr:match:12345"), *rk.EventID)
	require.Zero(t, rk.NodeID)

	rk, err = feed.ParseRoutingKey("-.-.-.snapshot_complete.-.-.-.7")
	require.NoError(t, err)
	require.Equal(t, feed.TypeSnapshotComplete, rk.MessageType)
	require.Nil(t, rk.SportID)
	require.Nil(t, rk.EventID)
	require.Equal(t, 7, rk.NodeID)

	rk, err = feed.ParseRoutingKey("lo.pre.-.fixture_change.40.sr:stage.99.-")
	require.NoError(t, err)
	require.True(t, rk.PreMatchInterest)
	require.Equal(t, urn.MustParse("sr:stage:99"), *rk.EventID)
}

func TestParseRoutingKeyErrors(t *testing.T) {
	for _, key := range []string{
		"",
		"hi.-.live.odds_change.1.sr:match.12345",
		"hi.-.live.-.1.sr:match.12345.-",
		"hi.-.live.odds_change.soccer.sr:match.12345.-",
		"hi.-.live.odds_change.1.sr:match.abc.-",
		"hi.-.live.odds_change.1.sr:match.12345.node",
	} {
		_, err := feed.ParseRoutingKey(key)
		require.ErrorIs(t, err, feed.ErrFormat, key)
	}
}

func TestSportIDFromRoutingKey(t *testing.T) {
	id, err := feed.SportIDFromRoutingKey("hi.-.live.bet_stop.5.sr:match.1.-")
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:sport:5"), *id)

	id, err = feed.SportIDFromRoutingKey("-.-.-.alive.-.-.-.-")
	require.NoError(t, err)
	require.Nil(t, id)

	id, err = feed.SportIDFromRoutingKey("-.-.-.snapshot_complete.1.-.-.-")
	require.NoError(t, err)
	require.Nil(t, id)

	_, err = feed.SportIDFromRoutingKey("-.-.-.alive")
	require.ErrorIs(t, err, feed.ErrFormat)

	_, err = feed.SportIDFromRoutingKey("hi.-.live.bet_stop.x.sr:match.1.-")
	require.ErrorIs(t, err, feed.ErrFormat)
}
