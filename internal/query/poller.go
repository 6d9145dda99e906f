package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/snapwatch/internal/bus"
	"github.com/five82/snapwatch/internal/snapshot"
)

// Options configure a Poller.
type Options struct {
	ShortInterval time.Duration // zero uses ShortInterval
	LongInterval  time.Duration // zero uses LongInterval
	Bus           *bus.Bus      // nil creates a private bus
	Logger        *slog.Logger  // nil uses slog.Default()
	Now           func() time.Time
}

// DeleteOutcome is the result of a successful delete.
type DeleteOutcome struct {
	// Message is the server supplied confirmation text.
	Message string
	// NavigateHome tells the presentation layer to leave the detail view.
	NavigateHome bool
}

type result struct {
	ticket Ticket
	data   *snapshot.Snapshot
	err    error
}

// Poller owns a Cache and drives it from a single event loop goroutine. Every
// cache mutation, subscriber notification and timer decision happens on that
// goroutine; fetches run on their own and post results back to it.
type Poller struct {
	fetcher snapshot.Fetcher
	deleter snapshot.Deleter
	bus     *bus.Bus
	log     *slog.Logger
	now     func() time.Time

	cache *Cache
	subs  map[string]map[*Subscription]struct{}

	cmds    chan func()
	results chan result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller starts a Poller. Call Close to stop it.
func NewPoller(fetcher snapshot.Fetcher, deleter snapshot.Deleter, opts Options) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		fetcher: fetcher,
		deleter: deleter,
		bus:     opts.Bus,
		log:     opts.Logger,
		now:     opts.Now,
		cache:   NewCache(opts.ShortInterval, opts.LongInterval),
		subs:    make(map[string]map[*Subscription]struct{}),
		cmds:    make(chan func()),
		results: make(chan result),
		ctx:     ctx,
		cancel:  cancel,
	}
	if p.bus == nil {
		p.bus = bus.New()
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// Bus returns the invalidation bus the poller writes to.
func (p *Poller) Bus() *bus.Bus { return p.bus }

// Close stops the event loop and waits for it to exit. In-flight fetches are
// cancelled and their results dropped.
func (p *Poller) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Poller) loop() {
	defer p.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		p.dispatchDue()
		if next, ok := p.cache.NextDue(); ok {
			timer.Reset(max(next.Sub(p.now()), 0))
		} else {
			timer.Stop()
		}

		select {
		case <-p.ctx.Done():
			return
		case fn := <-p.cmds:
			fn()
		case r := <-p.results:
			p.complete(r)
		case <-timer.C:
		}
	}
}

func (p *Poller) dispatchDue() {
	for _, t := range p.cache.Due(p.now()) {
		p.log.Debug("polling snapshot", "id", t.ID)
		go p.fetch(t)
	}
}

func (p *Poller) fetch(t Ticket) {
	data, err := p.fetcher.FetchSnapshot(p.ctx, t.ID)
	select {
	case p.results <- result{ticket: t, data: data, err: err}:
	case <-p.ctx.Done():
	}
}

func (p *Poller) complete(r result) {
	view, ok := p.cache.Complete(r.ticket, r.data, r.err, p.now())
	if !ok {
		p.log.Debug("dropping result for torn down entry", "id", r.ticket.ID)
		return
	}
	switch view.Status {
	case StatusError:
		p.log.Warn("snapshot poll failed", "id", view.ID, "error", view.Err, "failures", view.ConsecutiveFailures)
	case StatusGone:
		p.log.Info("snapshot no longer exists, polling stopped", "id", view.ID)
	}
	p.publish(view)
}

func (p *Poller) publish(v View) {
	for s := range p.subs[v.ID] {
		s.publish(v)
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (p *Poller) do(fn func()) error {
	done := make(chan struct{})
	select {
	case p.cmds <- func() { fn(); close(done) }:
	case <-p.ctx.Done():
		return ErrClosed
	}
	<-done
	return nil
}

// Subscribe attaches to the entry for id, creating it on first use. seed,
// when non-nil, is the bootstrap result and postpones the first poll by one
// interval. Later subscribers share the existing entry and ignore seed.
func (p *Poller) Subscribe(id string, seed *snapshot.Snapshot) (*Subscription, error) {
	s := &Subscription{id: id, poller: p, updates: make(chan View, 1)}
	err := p.do(func() {
		if p.cache.Ensure(id, seed, p.now()) {
			p.log.Debug("watching snapshot", "id", id, "seeded", seed != nil)
		}
		if p.subs[id] == nil {
			p.subs[id] = make(map[*Subscription]struct{})
		}
		p.subs[id][s] = struct{}{}
		v, _ := p.cache.Get(id)
		s.setCurrent(v)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh asks for an immediate poll of id. It is a no-op while a fetch for
// id is already in flight.
func (p *Poller) Refresh(id string) error {
	return p.do(func() { p.cache.MarkDue(id, p.now()) })
}

// Peek returns the current view of id, if the poller is watching it.
func (p *Poller) Peek(id string) (View, bool, error) {
	var (
		v  View
		ok bool
	)
	err := p.do(func() { v, ok = p.cache.Get(id) })
	return v, ok, err
}

// Delete removes the snapshot id. It fails with *PreconditionError, without a
// request, when the cache holds no data for id. A failed request returns
// *snapshot.MutationError and leaves the entry untouched. On success the
// "all snapshots" collection is marked stale and the entry is torn down.
func (p *Poller) Delete(ctx context.Context, id string) (DeleteOutcome, error) {
	view, ok, err := p.Peek(id)
	if err != nil {
		return DeleteOutcome{}, err
	}
	if !ok || !view.HasData() {
		return DeleteOutcome{}, &PreconditionError{ID: id}
	}

	msg, err := p.deleter.DeleteSnapshot(ctx, id)
	if err != nil {
		var mutErr *snapshot.MutationError
		if !errors.As(err, &mutErr) {
			mutErr = &snapshot.MutationError{Err: err}
		}
		p.log.Warn("snapshot delete failed", "id", id, "error", err)
		return DeleteOutcome{}, mutErr
	}

	p.bus.Invalidate(bus.KeySnapshots)
	_ = p.do(func() { p.teardown(id, true) })
	p.log.Info("snapshot deleted", "id", id)
	return DeleteOutcome{Message: msg, NavigateHome: true}, nil
}

// teardown drops the entry and detaches every subscriber. When deleted is
// set, subscribers get one final view before their channel closes.
func (p *Poller) teardown(id string, deleted bool) {
	final, _ := p.cache.Get(id)
	p.cache.Remove(id)
	final.Status = StatusGone
	final.Fetching = false
	final.NextPoll = time.Time{}
	final.Deleted = deleted
	for s := range p.subs[id] {
		if deleted {
			s.publish(final)
		}
		s.detach()
	}
	delete(p.subs, id)
}

func (p *Poller) unsubscribe(s *Subscription) {
	set := p.subs[s.id]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	s.detach()
	if len(set) > 0 {
		return
	}
	delete(p.subs, s.id)
	p.cache.Remove(s.id)
	p.log.Debug("stopped watching snapshot", "id", s.id)
}
