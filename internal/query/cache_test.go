package query

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/five82/snapwatch/internal/snapshot"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func TestInterval(t *testing.T) {
	c := NewCache(0, 0)
	tests := []struct {
		name string
		data *snapshot.Snapshot
		want time.Duration
	}{
		{"missing data", nil, ShortInterval},
		{"processing", &snapshot.Snapshot{Ready: false}, ShortInterval},
		{"ready", &snapshot.Snapshot{Ready: true}, LongInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Interval(tt.data); got != tt.want {
				t.Fatalf("Interval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCache_ProcessingToReadyScenario(t *testing.T) {
	c := NewCache(0, 0)

	if !c.Ensure("abc123", &snapshot.Snapshot{ID: "abc123", Ready: false, Files: 0}, t0) {
		t.Fatalf("Ensure = false, want entry created")
	}
	v, _ := c.Get("abc123")
	if v.Status != StatusSeeded || v.NextPoll != t0.Add(time.Second) {
		t.Fatalf("seeded view = %+v, want seeded due at t0+1s", v)
	}

	if got := c.Due(t0.Add(500 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("Due before interval = %v, want none", got)
	}

	tickets := c.Due(t0.Add(time.Second))
	if len(tickets) != 1 {
		t.Fatalf("Due at t0+1s = %v, want one ticket", tickets)
	}
	now := t0.Add(1100 * time.Millisecond)
	v, ok := c.Complete(tickets[0], &snapshot.Snapshot{ID: "abc123", Ready: false}, nil, now)
	if !ok || v.Status != StatusSuccess || v.Interval != time.Second {
		t.Fatalf("first poll view = %+v, want success with 1s interval", v)
	}

	tickets = c.Due(now.Add(time.Second))
	if len(tickets) != 1 {
		t.Fatalf("second Due = %v, want one ticket", tickets)
	}
	now = now.Add(1100 * time.Millisecond)
	ready := &snapshot.Snapshot{ID: "abc123", Ready: true, Files: 3, Size: int64Ptr(204800)}
	v, ok = c.Complete(tickets[0], ready, nil, now)
	if !ok {
		t.Fatalf("Complete dropped result")
	}
	if v.Interval != 5*time.Minute || v.NextPoll != now.Add(5*time.Minute) {
		t.Fatalf("ready view interval = %v next = %v, want 5m", v.Interval, v.NextPoll)
	}
	files, size, statsOK := v.Data.Stats()
	if !statsOK || files != 3 || size != 204800 {
		t.Fatalf("Stats = (%d, %d, %v), want (3, 204800, true)", files, size, statsOK)
	}

	if got := c.Due(now.Add(time.Second)); len(got) != 0 {
		t.Fatalf("Due one second after ready = %v, want none", got)
	}
	if got := c.Due(now.Add(5 * time.Minute)); len(got) != 1 {
		t.Fatalf("Due five minutes after ready = %v, want one ticket", got)
	}
}

func TestCache_UnseededEntryIsDueImmediately(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", nil, t0)
	v, _ := c.Get("x")
	if v.Status != StatusPending || v.HasData() {
		t.Fatalf("view = %+v, want pending without data", v)
	}
	if got := c.Due(t0); len(got) != 1 {
		t.Fatalf("Due = %v, want one ticket", got)
	}
}

func TestCache_EnsureKeepsExistingEntry(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", &snapshot.Snapshot{ID: "x", Title: "first"}, t0)
	if c.Ensure("x", &snapshot.Snapshot{ID: "x", Title: "second"}, t0) {
		t.Fatalf("Ensure = true for existing entry")
	}
	v, _ := c.Get("x")
	if v.Data.Title != "first" {
		t.Fatalf("Title = %q, want first", v.Data.Title)
	}
}

func TestCache_AtMostOneInFlight(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", nil, t0)

	if got := c.Due(t0); len(got) != 1 {
		t.Fatalf("Due = %v, want one ticket", got)
	}
	for i := 1; i <= 5; i++ {
		if got := c.Due(t0.Add(time.Duration(i) * time.Hour)); len(got) != 0 {
			t.Fatalf("Due while in flight = %v, want none", got)
		}
	}
	if c.MarkDue("x", t0) {
		t.Fatalf("MarkDue = true while in flight")
	}
	if _, ok := c.NextDue(); ok {
		t.Fatalf("NextDue ok = true with only an in-flight entry")
	}
}

func TestCache_ErrorKeepsDataAndKeepsPolling(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", &snapshot.Snapshot{ID: "x", Title: "kept", Ready: true}, t0)

	tickets := c.Due(t0.Add(LongInterval))
	now := t0.Add(LongInterval + time.Second)
	v, ok := c.Complete(tickets[0], nil, errors.New("connection refused"), now)
	if !ok {
		t.Fatalf("Complete dropped result")
	}
	if v.Status != StatusError || v.Data == nil || v.Data.Title != "kept" {
		t.Fatalf("error view = %+v, want error with previous data", v)
	}
	if !v.IsStale() || v.ConsecutiveFailures != 1 {
		t.Fatalf("IsStale = %v failures = %d, want stale with 1 failure", v.IsStale(), v.ConsecutiveFailures)
	}
	if v.NextPoll != now.Add(LongInterval) {
		t.Fatalf("NextPoll = %v, want %v", v.NextPoll, now.Add(LongInterval))
	}

	tickets = c.Due(v.NextPoll)
	v, _ = c.Complete(tickets[0], &snapshot.Snapshot{ID: "x", Title: "fresh", Ready: true}, nil, v.NextPoll)
	if v.Status != StatusSuccess || v.Err != nil || v.ConsecutiveFailures != 0 {
		t.Fatalf("recovered view = %+v, want success with cleared error", v)
	}
}

func TestCache_ReactsToLiteralReadyFlag(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", &snapshot.Snapshot{ID: "x", Ready: true}, t0)

	tickets := c.Due(t0.Add(LongInterval))
	v, _ := c.Complete(tickets[0], &snapshot.Snapshot{ID: "x", Ready: false}, nil, t0.Add(LongInterval))
	if v.Interval != ShortInterval {
		t.Fatalf("Interval = %v, want %v for a store reporting ready=false", v.Interval, ShortInterval)
	}
}

func TestCache_NotFoundStopsPolling(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", &snapshot.Snapshot{ID: "x", Title: "last"}, t0)

	tickets := c.Due(t0.Add(time.Second))
	err := fmt.Errorf("lookup: %w", snapshot.ErrNotFound)
	v, ok := c.Complete(tickets[0], nil, err, t0.Add(time.Second))
	if !ok || v.Status != StatusGone {
		t.Fatalf("view = %+v, want gone", v)
	}
	if v.Data == nil || v.Data.Title != "last" {
		t.Fatalf("Data = %+v, want last known data", v.Data)
	}
	if got := c.Due(t0.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("Due after gone = %v, want none", got)
	}
	if _, ok := c.NextDue(); ok {
		t.Fatalf("NextDue ok = true for gone entry")
	}
}

func TestCache_CompleteAfterRemoveIsDropped(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("x", nil, t0)
	tickets := c.Due(t0)

	c.Remove("x")
	if _, ok := c.Complete(tickets[0], &snapshot.Snapshot{ID: "x"}, nil, t0); ok {
		t.Fatalf("Complete applied result to removed entry")
	}

	// A new entry for the same id must not accept the old ticket either.
	c.Ensure("x", nil, t0)
	if _, ok := c.Complete(tickets[0], &snapshot.Snapshot{ID: "x"}, nil, t0); ok {
		t.Fatalf("Complete applied stale ticket to recreated entry")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCache_NextDuePicksEarliest(t *testing.T) {
	c := NewCache(0, 0)
	c.Ensure("ready", &snapshot.Snapshot{ID: "ready", Ready: true}, t0)
	c.Ensure("processing", &snapshot.Snapshot{ID: "processing"}, t0)

	next, ok := c.NextDue()
	if !ok || !next.Equal(t0.Add(ShortInterval)) {
		t.Fatalf("NextDue = %v %v, want %v", next, ok, t0.Add(ShortInterval))
	}
}

func TestCache_ViewIsACopy(t *testing.T) {
	c := NewCache(0, 0)
	seed := &snapshot.Snapshot{ID: "x", Title: "orig"}
	c.Ensure("x", seed, t0)
	seed.Title = "mutated"

	v, _ := c.Get("x")
	v.Data.Title = "also mutated"
	again, _ := c.Get("x")
	if again.Data.Title != "orig" {
		t.Fatalf("Title = %q, want orig", again.Data.Title)
	}
}

func TestStatusString(t *testing.T) {
	for status, want := range map[Status]string{
		StatusSeeded:  "seeded",
		StatusPending: "pending",
		StatusSuccess: "success",
		StatusError:   "error",
		StatusGone:    "gone",
		Status(99):    "unknown",
	} {
		if got := status.String(); got != want {
			t.Fatalf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}
