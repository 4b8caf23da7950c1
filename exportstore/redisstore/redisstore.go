// Package redisstore stores cache exports in redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/exportstore"
	"github.com/oddsfeed/go-uofsdk/sportevent"
	"github.com/redis/go-redis/v9"
)

var log = logging.Logger("exportstore/redisstore")

const DefaultPrefix = "uofsdk:cache:"

// Store keeps each export as a string value under prefix+id.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ exportstore.Store = (*Store)(nil)

// New creates a Store. A zero ttl keeps exports until they are replaced or
// cleared.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, items []*sportevent.Export) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, x := range items {
		data, err := exportstore.Marshal(x)
		if err != nil {
			return err
		}
		pipe.Set(ctx, s.prefix+x.ID.String(), data, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot save cache export: %w", err)
	}
	log.Infow("Saved cache export", "items", len(items), "prefix", s.prefix)
	return nil
}

func (s *Store) Load(ctx context.Context) ([]*sportevent.Export, error) {
	keys, err := s.keys(ctx)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var (
		out  []*sportevent.Export
		errs error
	)
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Expired between scan and get.
			continue
		}
		x, err := exportstore.Unmarshal([]byte(str))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", keys[i], err))
			continue
		}
		out = append(out, x)
	}
	return out, errs
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	if err = s.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *Store) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
