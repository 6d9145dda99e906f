// Package query keeps a client side, per-id cache of snapshot state and polls
// the store at an adaptive cadence.
//
// # Overview
//
// Cache is the state machine. Each entry moves through
//
//	seeded ──┐
//	         ├─> pending ─┬─> success ──> pending ...
//	(none) ──┘            ├─> error   ──> pending ...
//	                      └─> gone    (polling stops)
//
// After every completion the next poll is scheduled ShortInterval (1s) later
// while the snapshot is missing or not ready, and LongInterval (5m) later once
// it is ready. Errors keep the last good data and do not stop polling.
//
// Poller runs one goroutine that owns the Cache and a single timer armed for
// the earliest due entry, so any number of watched ids cost one goroutine plus
// one per fetch in flight. At most one fetch per id is in flight; a tick that
// lands while one is pending is skipped.
//
// # Subscriptions
//
//	sub, err := poller.Subscribe(id, seed)
//	defer sub.Close()
//	for v := range sub.Updates() {
//		render(v)
//	}
//
// The last Close for an id removes the entry and cancels its scheduled poll.
// A fetch that completes after that is dropped.
//
// # Deletion
//
// Poller.Delete checks the cache first and returns *PreconditionError without
// a request when no data is known. A successful delete marks bus.KeySnapshots
// stale, publishes a final view with Deleted set and closes every
// subscription for the id.
//
// # Not found while polling
//
// A poll that answers snapshot.ErrNotFound moves the entry to StatusGone and
// stops polling it. The last known data is kept so the view can still say
// what disappeared.
package query
