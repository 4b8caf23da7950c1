package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oddsfeed/go-uofsdk/exportstore/redisstore"
	"github.com/oddsfeed/go-uofsdk/sportevent"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *redis.Client {
	addr := os.Getenv("UOF_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("UOF_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func lotteryExport(id string) *sportevent.Export {
	return &sportevent.Export{
		Version:   sportevent.ExportVersion,
		ID:        urn.MustParse(id),
		Kind:      sportevent.KindLottery,
		Languages: []string{"en"},
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Lottery: &sportevent.LotteryData{
			Names:   sportevent.Localized{"en": "Lotto 6/49"},
			SportID: urn.MustParse("sr:sport:108"),
		},
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	prefix := "uofsdk-test:" + uuid.NewString() + ":"
	s := redisstore.New(client, prefix, time.Minute)
	t.Cleanup(func() { s.Clear(context.Background()) })

	require.NoError(t, s.Save(ctx, []*sportevent.Export{lotteryExport("wns:lottery:1"), lotteryExport("wns:lottery:2")}))
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	ttl, err := client.TTL(ctx, prefix+"wns:lottery:1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Save(ctx, []*sportevent.Export{lotteryExport("wns:lottery:2")}))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "Lotto 6/49", loaded[0].Lottery.Names["en"])

	require.NoError(t, s.Clear(ctx))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
}
