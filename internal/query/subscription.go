package query

import "sync"

// Subscription is one consumer's attachment to a cache entry.
type Subscription struct {
	id      string
	poller  *Poller
	updates chan View

	mu       sync.Mutex
	current  View
	detached bool
	once     sync.Once
}

// ID returns the snapshot id this subscription watches.
func (s *Subscription) ID() string { return s.id }

// Current returns the latest view delivered to this subscription.
func (s *Subscription) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Updates delivers views as fetches complete. Only the newest undelivered view
// is kept. The channel is closed when the subscription is detached.
func (s *Subscription) Updates() <-chan View { return s.updates }

// Close detaches the subscription. The last one to close for an id tears the
// entry down and cancels its scheduled poll. Updates is closed even when the
// poller has already shut down.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if err := s.poller.do(func() { s.poller.unsubscribe(s) }); err != nil {
			s.detach()
		}
	})
}

func (s *Subscription) setCurrent(v View) {
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
}

// publish runs on the poller loop, the only sender on updates.
func (s *Subscription) publish(v View) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.current = v
	s.mu.Unlock()

	select {
	case s.updates <- v:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- v:
	default:
	}
}

func (s *Subscription) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.detached = true
	close(s.updates)
}
