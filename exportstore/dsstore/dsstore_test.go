package dsstore_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/oddsfeed/go-uofsdk/exportstore/dsstore"
	"github.com/oddsfeed/go-uofsdk/sportevent"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

func drawExport(id string, status string) *sportevent.Export {
	return &sportevent.Export{
		Version:   sportevent.ExportVersion,
		ID:        urn.MustParse(id),
		Kind:      sportevent.KindDraw,
		Languages: []string{"en"},
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Draw: &sportevent.DrawData{
			LotteryID: urn.MustParse("wns:lottery:1"),
			SportID:   urn.MustParse("sr:sport:108"),
			Status:    status,
		},
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	s := dsstore.New(ds)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)

	require.NoError(t, s.Save(ctx, []*sportevent.Export{
		drawExport("wns:draw:10", "finished"),
		drawExport("wns:draw:11", "open"),
	}))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID.String() < loaded[j].ID.String() })
	require.Equal(t, drawExport("wns:draw:10", "finished"), loaded[0])
	require.Equal(t, "open", loaded[1].Draw.Status)

	// Saving replaces the previous set.
	require.NoError(t, s.Save(ctx, []*sportevent.Export{drawExport("wns:draw:11", "finished")}))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "finished", loaded[0].Draw.Status)

	require.NoError(t, s.Clear(ctx))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestLoadSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	s := dsstore.New(ds)
	require.NoError(t, s.Save(ctx, []*sportevent.Export{drawExport("wns:draw:10", "open")}))
	require.NoError(t, ds.Put(ctx, datastore.NewKey(dsstore.Prefix).ChildString("broken"), []byte("{")))
	require.NoError(t, ds.Put(ctx, datastore.NewKey("/other/key"), []byte("{")))

	loaded, err := s.Load(ctx)
	require.Error(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, urn.MustParse("wns:draw:10"), loaded[0].ID)
}
