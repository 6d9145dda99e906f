package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/snapwatch/internal/bootstrap"
	"github.com/five82/snapwatch/internal/bus"
	"github.com/five82/snapwatch/internal/query"
	"github.com/five82/snapwatch/internal/snapshot"
	"github.com/five82/snapwatch/internal/store"
)

func newTestAPI(t *testing.T) (*store.Store, *snapshot.Client, *httptest.Server) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := snapshot.NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return st, client, ts
}

func TestAPI_LookupAndDelete(t *testing.T) {
	st, client, _ := newTestAPI(t)
	ctx := context.Background()

	snap, err := st.Create(ctx, "Example", "https://example.com")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := client.FetchSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("FetchSnapshot returned error: %v", err)
	}
	if got.ID != snap.ID || !got.CreatedAt.Equal(snap.CreatedAt) {
		t.Fatalf("FetchSnapshot = %+v, want %+v", got, snap)
	}

	if _, err := client.FetchSnapshot(ctx, "missing"); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("FetchSnapshot(missing) error = %v, want ErrNotFound", err)
	}

	msg, err := client.DeleteSnapshot(ctx, snap.ID)
	if err != nil || msg != "Deleted." {
		t.Fatalf("DeleteSnapshot = (%q, %v), want Deleted.", msg, err)
	}

	_, err = client.DeleteSnapshot(ctx, snap.ID)
	var mutErr *snapshot.MutationError
	if !errors.As(err, &mutErr) || mutErr.UserMessage() != "Snapshot not found." {
		t.Fatalf("second DeleteSnapshot error = %v, want Snapshot not found.", err)
	}
}

func TestAPI_ListEmptyIsArray(t *testing.T) {
	_, client, _ := newTestAPI(t)
	items, err := client.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("ListSnapshots returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("ListSnapshots = %v, want empty", items)
	}
}

func TestAPI_CreateReadyAndMetrics(t *testing.T) {
	_, client, ts := newTestAPI(t)

	resp, err := http.Post(ts.URL+"/api/snapshots", "application/json", strings.NewReader(`{"url":"https://example.com"}`))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	items, err := client.ListSnapshots(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("ListSnapshots = (%v, %v), want one item", items, err)
	}

	resp, err = http.Post(ts.URL+"/api/snapshots/"+items[0].ID+"/ready", "application/json", strings.NewReader(`{"files":3,"size":204800}`))
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", resp.StatusCode)
	}

	got, err := client.FetchSnapshot(context.Background(), items[0].ID)
	if err != nil {
		t.Fatalf("FetchSnapshot returned error: %v", err)
	}
	if files, size, ok := got.Stats(); !ok || files != 3 || size != 204800 {
		t.Fatalf("Stats = (%d, %d, %v), want (3, 204800, true)", files, size, ok)
	}

	resp, err = http.Post(ts.URL+"/api/snapshots", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("create without url status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "snapwatch_snapshots_created_total 1") {
		t.Fatalf("metrics body missing created counter:\n%s", body)
	}
	if !strings.Contains(string(body), `route="/api/snapshot/{id}"`) {
		t.Fatalf("metrics body missing route pattern label:\n%s", body)
	}
}

func TestAPI_DeleteRequiresUUID(t *testing.T) {
	_, _, ts := newTestAPI(t)
	resp, err := http.Post(ts.URL+"/api/action/delete", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// The full path a detail view takes: bootstrap, poll until ready, delete.
func TestAPI_BootstrapPollDeleteFlow(t *testing.T) {
	st, client, _ := newTestAPI(t)
	ctx := context.Background()

	snap, err := st.Create(ctx, "Example", "https://example.com")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := bootstrap.Load(ctx, client, "missing"); !errors.Is(err, bootstrap.ErrNotFound) {
		t.Fatalf("bootstrap.Load(missing) error = %v, want ErrNotFound", err)
	}

	seed, err := bootstrap.Load(ctx, client, snap.ID)
	if err != nil {
		t.Fatalf("bootstrap.Load returned error: %v", err)
	}
	seeded, err := seed.Snapshot()
	if err != nil {
		t.Fatalf("seed.Snapshot returned error: %v", err)
	}

	b := bus.New()
	listCalls := 0
	list := func(ctx context.Context) ([]snapshot.Snapshot, error) {
		listCalls++
		return client.ListSnapshots(ctx)
	}
	if _, err := bus.Load(ctx, b, bus.KeySnapshots, list); err != nil {
		t.Fatalf("bus.Load returned error: %v", err)
	}

	p := query.NewPoller(client, client, query.Options{
		ShortInterval: 20 * time.Millisecond,
		LongInterval:  time.Hour,
		Bus:           b,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(p.Close)

	sub, err := p.Subscribe(snap.ID, &seeded)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer sub.Close()

	if _, err := st.MarkReady(ctx, snap.ID, 3, 204800, false); err != nil {
		t.Fatalf("MarkReady returned error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for ready := false; !ready; {
		select {
		case v := <-sub.Updates():
			ready = v.Ready()
			if ready && v.Interval != time.Hour {
				t.Fatalf("Interval = %v once ready, want 1h", v.Interval)
			}
		case <-deadline:
			t.Fatalf("snapshot never became ready; current = %+v", sub.Current())
		}
	}

	out, err := p.Delete(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if out.Message != "Deleted." || !out.NavigateHome {
		t.Fatalf("Delete = %+v, want Deleted. and NavigateHome", out)
	}

	items, err := bus.Load(ctx, b, bus.KeySnapshots, list)
	if err != nil {
		t.Fatalf("bus.Load returned error: %v", err)
	}
	if listCalls != 2 || len(items) != 0 {
		t.Fatalf("listing after delete = %v (fetches %d), want fresh empty list", items, listCalls)
	}
}
