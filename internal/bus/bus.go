// Package bus holds collections that several views share, such as the
// "all snapshots" listing. Mutations mark entries stale; the next Load of a
// stale entry fetches again.
//
// A Bus is an explicit value. Construct one in the composition root and hand
// it to every component that reads or invalidates shared collections.
package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Key identifies a collection. Keys form a path; invalidating a prefix marks
// every key below it.
type Key []string

// KeySnapshots is the "all snapshots" listing.
var KeySnapshots = Key{"snapshots"}

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) hasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
	stale     atomic.Bool
}

// mark records the latest invalidation of a prefix, so a load that was in
// flight when it happened can tell its result is already stale.
type mark struct {
	prefix Key
	epoch  uint64
}

// Bus is a process-wide keyed cache.
type Bus struct {
	mu      sync.RWMutex
	entries map[string]*entry
	marks   map[string]mark
	epoch   atomic.Uint64
	now     func() time.Time
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		entries: make(map[string]*entry),
		marks:   make(map[string]mark),
		now:     time.Now,
	}
}

// Load returns the cached value for key, calling fetch when the entry is
// missing or stale. Fetch errors leave any previous entry in place.
func Load[T any](ctx context.Context, b *Bus, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := Peek[T](b, key); ok {
		return v, nil
	}
	since := b.epoch.Load()
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	b.storeSince(key, v, since)
	return v, nil
}

// Peek returns the cached value when it is present and fresh.
func Peek[T any](b *Bus, key Key) (T, bool) {
	var zero T
	b.mu.RLock()
	e := b.entries[key.String()]
	b.mu.RUnlock()
	if e == nil || e.stale.Load() {
		return zero, false
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func (b *Bus) store(key Key, value any) {
	b.storeSince(key, value, b.epoch.Load())
}

// storeSince caches value for key. since is the epoch observed before the
// value was fetched; an invalidation of key after it leaves the new entry
// stale.
func (b *Bus) storeSince(key Key, value any, since uint64) {
	e := &entry{key: append(Key(nil), key...), value: value, fetchedAt: b.now()}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.marks {
		if m.epoch > since && key.hasPrefix(m.prefix) {
			e.stale.Store(true)
			break
		}
	}
	b.entries[key.String()] = e
}

// Invalidate marks every entry under prefix stale and reports how many it
// touched. Stale is sticky until the entry is reloaded. Loads in flight for
// keys under prefix store their result as stale, even when no entry existed
// yet.
func (b *Bus) Invalidate(prefix Key) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks[prefix.String()] = mark{
		prefix: append(Key(nil), prefix...),
		epoch:  b.epoch.Add(1),
	}
	n := 0
	for _, e := range b.entries {
		if e.key.hasPrefix(prefix) {
			e.stale.Store(true)
			n++
		}
	}
	return n
}

// IsStale reports whether key is cached but stale. Missing keys are not stale.
func (b *Bus) IsStale(key Key) bool {
	b.mu.RLock()
	e := b.entries[key.String()]
	b.mu.RUnlock()
	return e != nil && e.stale.Load()
}

// FetchedAt returns when key was last loaded.
func (b *Bus) FetchedAt(key Key) (time.Time, bool) {
	b.mu.RLock()
	e := b.entries[key.String()]
	b.mu.RUnlock()
	if e == nil {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

// Remove drops key from the bus.
func (b *Bus) Remove(key Key) {
	b.mu.Lock()
	delete(b.entries, key.String())
	b.mu.Unlock()
}
