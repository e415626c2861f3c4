package sqlitestore_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"leadboard/internal/db"
	"leadboard/internal/store"
	"leadboard/internal/store/sqlitestore"
)

type note struct {
	UserID  string    `json:"userId"`
	Title   string    `json:"title"`
	Done    bool      `json:"done"`
	Version string    `json:"version,omitempty"`
	Stamp   time.Time `json:"stamp"`
}

func newTestStore(t *testing.T) (*sqlitestore.Store, time.Time) {
	t.Helper()
	now := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	s, err := sqlitestore.Open(context.Background(), db.Config{Workspace: t.TempDir()}, sqlitestore.Options{
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, now
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)

	id, err := s.Create(ctx, "notes", map[string]any{"userId": "u1", "title": "a", "version": "1.0", "stamp": store.ServerTimestamp})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err := s.Get(ctx, "notes", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var n note
	if err := doc.DataTo(&n); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.Title != "a" || !n.Stamp.Equal(now) {
		t.Fatalf("unexpected doc %+v", n)
	}

	if err := s.Update(ctx, "notes", id, map[string]any{"title": "b", "version": store.DeleteField}); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, _ = s.Get(ctx, "notes", id)
	n = note{}
	_ = doc.DataTo(&n)
	if n.Title != "b" || n.Version != "" || n.UserID != "u1" {
		t.Fatalf("update not merged: %+v", n)
	}

	if err := s.Update(ctx, "notes", "missing", map[string]any{"title": "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "notes", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "notes", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetMergeAndQuery(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if err := s.Set(ctx, "notes", "n1", map[string]any{"userId": "u1", "title": "a", "done": true}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "notes", "n1", map[string]any{"title": "a2"}, true); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.Set(ctx, "notes", "n2", map[string]any{"userId": "u2", "title": "c"}, true); err != nil {
		t.Fatalf("merge create: %v", err)
	}
	docs, err := s.Query(ctx, "notes", store.Eq("userId", "u1"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "n1" {
		t.Fatalf("expected n1 only, got %d docs", len(docs))
	}
	var n note
	_ = docs[0].DataTo(&n)
	if n.Title != "a2" || !n.Done {
		t.Fatalf("merge lost fields: %+v", n)
	}
	docs, _ = s.Query(ctx, "notes", store.Eq("done", true))
	if len(docs) != 1 {
		t.Fatalf("expected bool filter to match one doc, got %d", len(docs))
	}
}

func TestWatchDeliversAfterCommitUntilStopped(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var sizes []int
	stop, err := s.Watch(ctx, "notes", func(docs []store.Document) { sizes = append(sizes, len(docs)) }, nil, store.Eq("userId", "u1"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if len(sizes) != 1 || sizes[0] != 0 {
		t.Fatalf("expected initial empty snapshot, got %v", sizes)
	}
	if _, err := s.Create(ctx, "notes", map[string]any{"userId": "u1", "title": "a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "other", map[string]any{"userId": "u1"}); err != nil {
		t.Fatalf("create other: %v", err)
	}
	if len(sizes) != 2 || sizes[1] != 1 {
		t.Fatalf("expected one delivery for notes, got %v", sizes)
	}
	stop()
	if _, err := s.Create(ctx, "notes", map[string]any{"userId": "u1", "title": "b"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sizes) != 2 {
		t.Fatalf("stopped watcher still notified: %v", sizes)
	}
}

func TestBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.Set(ctx, "notes", "n1", map[string]any{"userId": "u1", "title": "a"}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	err := s.Batch(ctx, []store.Op{
		store.UpdateOp("notes", "n1", map[string]any{"title": "changed"}),
		store.UpdateOp("notes", "ghost", map[string]any{"title": "x"}),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	doc, _ := s.Get(ctx, "notes", "n1")
	var n note
	_ = doc.DataTo(&n)
	if n.Title != "a" {
		t.Fatalf("batch partially applied: %+v", n)
	}
}

func TestStopReleasesWatchGoroutine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	for i := 0; i < 100; i++ {
		stop, err := s.Watch(ctx, "notes", func([]store.Document) {}, nil, store.Eq("userId", "u1"))
		if err != nil {
			t.Fatalf("watch #%d: %v", i, err)
		}
		stop()
	}
	deadline := time.Now().Add(2 * time.Second)
	after := runtime.NumGoroutine()
	for after > before+5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		after = runtime.NumGoroutine()
	}
	if after > before+5 {
		t.Fatalf("stopped watches still hold goroutines: before=%d after=%d", before, after)
	}
}
