// Package bootstrap performs the one-shot lookup that seeds a detail view
// before any polling starts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/snapwatch/internal/snapshot"
)

// ErrNotFound means the id resolved to nothing. The caller renders its 404
// state and never creates a cache entry.
var ErrNotFound = fmt.Errorf("bootstrap: %w", snapshot.ErrNotFound)

// Seed is the encoded result of a successful lookup.
type Seed struct {
	ID        string
	Payload   []byte
	FetchedAt time.Time
}

// Snapshot decodes the seed payload.
func (s Seed) Snapshot() (snapshot.Snapshot, error) {
	return snapshot.Decode(s.Payload)
}

// Load looks id up exactly once. It does not retry; store failures are
// returned wrapped so the caller can show a failed navigation.
func Load(ctx context.Context, lookup snapshot.Fetcher, id string) (Seed, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Seed{}, ErrNotFound
	}
	snap, err := lookup.FetchSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return Seed{}, ErrNotFound
		}
		return Seed{}, fmt.Errorf("bootstrap %s: %w", id, err)
	}
	if snap == nil {
		return Seed{}, ErrNotFound
	}
	payload, err := snapshot.Encode(*snap)
	if err != nil {
		return Seed{}, fmt.Errorf("bootstrap %s: %w", id, err)
	}
	return Seed{ID: snap.ID, Payload: payload, FetchedAt: time.Now()}, nil
}
