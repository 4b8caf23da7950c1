// Package exportstore persists sport event cache exports between runs.
package exportstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oddsfeed/go-uofsdk/sportevent"
)

// Store saves and loads cache exports.
type Store interface {
	// Save replaces the stored exports with items.
	Save(ctx context.Context, items []*sportevent.Export) error
	Load(ctx context.Context) ([]*sportevent.Export, error)
	Clear(ctx context.Context) error
}

// Marshal encodes an export for storage.
func Marshal(x *sportevent.Export) ([]byte, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("cannot encode export of %s: %w", x.ID, err)
	}
	return data, nil
}

// Unmarshal decodes an export read from storage.
func Unmarshal(data []byte) (*sportevent.Export, error) {
	x := new(sportevent.Export)
	if err := json.Unmarshal(data, x); err != nil {
		return nil, fmt.Errorf("cannot decode export: %w", err)
	}
	return x, nil
}
