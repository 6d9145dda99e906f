package query

import (
	"errors"
	"time"

	"github.com/five82/snapwatch/internal/snapshot"
)

// Polling cadence.
const (
	// ShortInterval applies while the snapshot is missing or still processing.
	ShortInterval = time.Second

	// LongInterval applies once the snapshot is ready. It only exists to pick
	// up out-of-band changes.
	LongInterval = 5 * time.Minute
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	// StatusSeeded means the entry holds bootstrap data and has not polled yet.
	StatusSeeded Status = iota
	// StatusPending means a fetch is in flight, or the entry has no data yet.
	StatusPending
	// StatusSuccess means the last fetch succeeded.
	StatusSuccess
	// StatusError means the last fetch failed. Data, if any, is from an
	// earlier success.
	StatusError
	// StatusGone means the snapshot no longer exists. Polling has stopped.
	StatusGone
)

func (s Status) String() string {
	switch s {
	case StatusSeeded:
		return "seeded"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusGone:
		return "gone"
	default:
		return "unknown"
	}
}

// View is a copy of one entry's state, safe to hand to other goroutines.
type View struct {
	ID                  string
	Data                *snapshot.Snapshot
	Status              Status
	Err                 error
	Fetching            bool
	LastPolled          time.Time
	NextPoll            time.Time
	Interval            time.Duration
	ConsecutiveFailures int
	// Deleted is set on the final view published after a successful delete.
	Deleted bool
}

// HasData reports whether any snapshot data is known.
func (v View) HasData() bool { return v.Data != nil }

// Ready reports whether the known data is a finished snapshot.
func (v View) Ready() bool { return v.Data != nil && v.Data.Ready }

// IsStale returns true when the data shown may be out of date because the
// last poll failed.
func (v View) IsStale() bool { return v.Status == StatusError && v.Data != nil }

// Ticket identifies one issued fetch. Completions whose ticket no longer
// matches a live entry are dropped.
type Ticket struct {
	ID  string
	gen uint64
}

type entry struct {
	id         string
	gen        uint64
	data       *snapshot.Snapshot
	status     Status
	err        error
	inFlight   bool
	lastPolled time.Time
	nextDue    time.Time
	interval   time.Duration
	failures   int
}

// Cache is the polling state machine for every watched snapshot. It holds no
// goroutines or timers; the caller passes the current time and runs the
// fetches it hands out. It is not safe for concurrent use.
type Cache struct {
	short   time.Duration
	long    time.Duration
	gen     uint64
	entries map[string]*entry
}

// NewCache returns an empty Cache. Non-positive intervals use the defaults.
func NewCache(short, long time.Duration) *Cache {
	if short <= 0 {
		short = ShortInterval
	}
	if long <= 0 {
		long = LongInterval
	}
	return &Cache{short: short, long: long, entries: make(map[string]*entry)}
}

// Interval picks the delay before the next poll. The literal Ready flag is
// authoritative; keeping it monotonic is the store's job.
func (c *Cache) Interval(data *snapshot.Snapshot) time.Duration {
	if data == nil || !data.Ready {
		return c.short
	}
	return c.long
}

// Ensure creates the entry for id if it does not exist and reports whether it
// did. With a seed the entry starts seeded and waits one interval before its
// first poll; without one it is due immediately.
func (c *Cache) Ensure(id string, seed *snapshot.Snapshot, now time.Time) bool {
	if _, ok := c.entries[id]; ok {
		return false
	}
	c.gen++
	e := &entry{id: id, gen: c.gen}
	if seed != nil {
		data := seed.Clone()
		e.data = &data
		e.status = StatusSeeded
		e.lastPolled = now
		e.interval = c.Interval(e.data)
		e.nextDue = now.Add(e.interval)
	} else {
		e.status = StatusPending
		e.interval = c.short
		e.nextDue = now
	}
	c.entries[id] = e
	return true
}

// Due hands out a ticket for every entry whose next poll time has passed and
// which has no fetch in flight, and marks those entries pending.
func (c *Cache) Due(now time.Time) []Ticket {
	var tickets []Ticket
	for _, e := range c.entries {
		if e.inFlight || e.status == StatusGone || e.nextDue.After(now) {
			continue
		}
		e.inFlight = true
		e.status = StatusPending
		tickets = append(tickets, Ticket{ID: e.id, gen: e.gen})
	}
	return tickets
}

// Complete applies the outcome of a fetch. It returns false when the result
// was discarded because its entry was torn down in the meantime.
func (c *Cache) Complete(t Ticket, data *snapshot.Snapshot, err error, now time.Time) (View, bool) {
	e, ok := c.entries[t.ID]
	if !ok || e.gen != t.gen || !e.inFlight {
		return View{}, false
	}
	e.inFlight = false
	e.lastPolled = now

	switch {
	case err == nil && data != nil:
		dup := data.Clone()
		e.data = &dup
		e.status = StatusSuccess
		e.err = nil
		e.failures = 0
	case errors.Is(err, snapshot.ErrNotFound):
		e.status = StatusGone
		e.err = err
		e.nextDue = time.Time{}
		return e.view(), true
	default:
		if err == nil {
			err = errors.New("empty response")
		}
		e.status = StatusError
		e.err = err
		e.failures++
	}

	e.interval = c.Interval(e.data)
	e.nextDue = now.Add(e.interval)
	return e.view(), true
}

// MarkDue moves the next poll for id to now. A fetch already in flight is
// left alone.
func (c *Cache) MarkDue(id string, now time.Time) bool {
	e, ok := c.entries[id]
	if !ok || e.inFlight || e.status == StatusGone {
		return false
	}
	e.nextDue = now
	return true
}

// Remove tears down the entry for id. Results still in flight for it will be
// discarded by Complete.
func (c *Cache) Remove(id string) bool {
	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	return true
}

// Get returns the current view of id.
func (c *Cache) Get(id string) (View, bool) {
	e, ok := c.entries[id]
	if !ok {
		return View{}, false
	}
	return e.view(), true
}

// NextDue returns the earliest time an idle entry needs polling.
func (c *Cache) NextDue() (time.Time, bool) {
	var next time.Time
	found := false
	for _, e := range c.entries {
		if e.inFlight || e.status == StatusGone {
			continue
		}
		if !found || e.nextDue.Before(next) {
			next = e.nextDue
			found = true
		}
	}
	return next, found
}

// Len returns the number of live entries.
func (c *Cache) Len() int { return len(c.entries) }

func (e *entry) view() View {
	v := View{
		ID:                  e.id,
		Status:              e.status,
		Err:                 e.err,
		Fetching:            e.inFlight,
		LastPolled:          e.lastPolled,
		NextPoll:            e.nextDue,
		Interval:            e.interval,
		ConsecutiveFailures: e.failures,
	}
	if e.data != nil {
		dup := e.data.Clone()
		v.Data = &dup
	}
	return v
}
