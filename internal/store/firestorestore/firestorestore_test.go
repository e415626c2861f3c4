package firestorestore_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"

	"leadboard/internal/store"
	"leadboard/internal/store/firestorestore"
)

// Runs against the Firestore emulator only.
func newEmulatorStore(t *testing.T) *firestorestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "leadboard-test")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	s := firestorestore.New(client, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmulatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newEmulatorStore(t)

	id, err := s.Create(ctx, "notes", map[string]any{"userId": "u1", "title": "a", "updatedAt": store.ServerTimestamp})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(ctx, "notes", id) })
	if err := s.Update(ctx, "notes", id, map[string]any{"title": "b"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, err := s.Get(ctx, "notes", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got struct {
		Title string `firestore:"title"`
	}
	if err := doc.DataTo(&got); err != nil || got.Title != "b" {
		t.Fatalf("unexpected doc %+v err=%v", got, err)
	}
	if _, err := s.Get(ctx, "notes", "does-not-exist"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
