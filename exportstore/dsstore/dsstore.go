// Package dsstore stores cache exports in a datastore.
package dsstore

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/exportstore"
	"github.com/oddsfeed/go-uofsdk/sportevent"
)

var log = logging.Logger("exportstore/dsstore")

// Prefix is the datastore key prefix of stored exports.
const Prefix = "/uofsdk/cache"

// Store keeps each export under Prefix/<id>.
type Store struct {
	ds datastore.Batching
}

var _ exportstore.Store = (*Store)(nil)

func New(ds datastore.Batching) *Store {
	return &Store{ds: ds}
}

func key(x *sportevent.Export) datastore.Key {
	return datastore.NewKey(Prefix).ChildString(x.ID.String())
}

func (s *Store) Save(ctx context.Context, items []*sportevent.Export) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	b, err := s.ds.Batch(ctx)
	if err != nil {
		return err
	}

	keep := make(map[datastore.Key]struct{}, len(items))
	for _, x := range items {
		data, err := exportstore.Marshal(x)
		if err != nil {
			return err
		}
		k := key(x)
		keep[k] = struct{}{}
		if err = b.Put(ctx, k, data); err != nil {
			return fmt.Errorf("cannot put %s: %w", k, err)
		}
	}
	for _, k := range keys {
		if _, ok := keep[k]; !ok {
			if err = b.Delete(ctx, k); err != nil {
				return fmt.Errorf("cannot delete %s: %w", k, err)
			}
		}
	}
	if err = b.Commit(ctx); err != nil {
		return err
	}
	log.Infow("Saved cache export", "items", len(items))
	return s.ds.Sync(ctx, datastore.NewKey(Prefix))
}

// Load returns all stored exports. Exports that cannot be decoded are
// skipped and their errors returned with the others.
func (s *Store) Load(ctx context.Context) ([]*sportevent.Export, error) {
	results, err := s.ds.Query(ctx, query.Query{Prefix: Prefix})
	if err != nil {
		return nil, err
	}
	defer results.Close()

	var (
		out  []*sportevent.Export
		errs error
	)
	for r := range results.Next() {
		if r.Error != nil {
			return out, r.Error
		}
		x, err := exportstore.Unmarshal(r.Value)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.Key, err))
			continue
		}
		out = append(out, x)
	}
	return out, errs
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	b, err := s.ds.Batch(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err = b.Delete(ctx, k); err != nil {
			return err
		}
	}
	return b.Commit(ctx)
}

func (s *Store) keys(ctx context.Context) ([]datastore.Key, error) {
	results, err := s.ds.Query(ctx, query.Query{Prefix: Prefix, KeysOnly: true})
	if err != nil {
		return nil, err
	}
	entries, err := results.Rest()
	if err != nil {
		return nil, err
	}
	keys := make([]datastore.Key, len(entries))
	for i, e := range entries {
		keys[i] = datastore.NewKey(e.Key)
	}
	return keys, nil
}
