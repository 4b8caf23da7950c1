package urn_test

import (
	"encoding/json"
	"testing"

	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	u, err := urn.Parse("sr:match:12345678")
	require.NoError(t, err)
	require.Equal(t, "sr", u.Prefix)
	require.Equal(t, "match", u.Type)
	require.Equal(t, int64(12345678), u.ID)
	require.Equal(t, urn.Match, u.TypeGroup())
	require.Equal(t, "sr:match:12345678", u.String())

	u, err = urn.Parse("wns:draw:1")
	require.NoError(t, err)
	require.Equal(t, urn.Draw, u.TypeGroup())

	u, err = urn.Parse("sr:simple_tournament:99")
	require.NoError(t, err)
	require.Equal(t, urn.BasicTournament, u.TypeGroup())

	u, err = urn.Parse("sr:whatever:5")
	require.NoError(t, err)
	require.Equal(t, urn.Unknown, u.TypeGroup())
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"sr:match",
		"sr:match:",
		"sr:match:abc",
		"sr:match:-1",
		"sr:match:0",
		":match:1",
		"sr::1",
		"sr:match:1:2",
	} {
		_, err := urn.Parse(s)
		require.ErrorIs(t, err, urn.ErrFormat, s)
	}
}

func TestEquality(t *testing.T) {
	a := urn.MustParse("sr:stage:1")
	b := urn.MustParse("sr:stage:1")
	c := urn.MustParse("sr:match:1")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	m := map[urn.URN]int{a: 1}
	m[b]++
	require.Equal(t, 2, m[a])
	require.Zero(t, m[c])
}

func TestNew(t *testing.T) {
	u, err := urn.New("sr", "tournament", 7)
	require.NoError(t, err)
	require.Equal(t, urn.MustParse("sr:tournament:7"), u)

	_, err = urn.New("sr", "tournament", 0)
	require.ErrorIs(t, err, urn.ErrFormat)
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		ID     urn.URN `json:"id"`
		Parent urn.URN `json:"parent"`
	}
	in := wrapper{ID: urn.MustParse("sr:lottery:3")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"sr:lottery:3","parent":""}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
	require.True(t, out.Parent.IsZero())
}
