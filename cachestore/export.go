package cachestore

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Exporter is implemented by values that can produce a self-contained
// snapshot of themselves.
type Exporter[E any] interface {
	Export() (E, error)
}

// ExportAll exports every live value in the store. Values that fail to
// export are skipped and their errors returned together with the exported
// snapshots.
func ExportAll[E any, V Exporter[E]](s *Store[V]) ([]E, error) {
	var (
		out  []E
		errs error
	)
	s.Range(func(key string, value V) bool {
		snap, err := value.Export()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cannot export %s: %w", key, err))
			return true
		}
		out = append(out, snap)
		return true
	})
	return out, errs
}

// ImportAll rebuilds values from snapshots and puts them in the store. The
// build function must construct a value from the snapshot alone; importing
// never triggers fetching.
func ImportAll[E any, V any](s *Store[V], snapshots []E, build func(E) (string, V, error), options ...PutOption) (int, error) {
	var (
		count int
		errs  error
	)
	for _, snap := range snapshots {
		key, value, err := build(snap)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err = s.Put(key, value, options...); err != nil {
			return count, multierror.Append(errs, err)
		}
		count++
	}
	return count, errs
}
