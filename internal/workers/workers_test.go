package workers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadboard/internal/domain"
	"leadboard/internal/workers"
)

type fakeDaily struct {
	mu    sync.Mutex
	users []string
	done  chan struct{}
}

func (f *fakeDaily) Load(_ context.Context, userID string) ([]domain.DailyEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	if len(f.users) == 1 {
		close(f.done)
	}
	return nil, nil
}

func TestRetentionWorkerSkipsSignedOut(t *testing.T) {
	f := &fakeDaily{done: make(chan struct{})}
	w := workers.RetentionWorker{Daily: f, UserID: func() string { return "" }}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.users) != 0 {
		t.Fatalf("signed-out sweep should not load")
	}
	if w.Interval() != time.Hour {
		t.Fatalf("expected default interval, got %s", w.Interval())
	}
}

func TestManagerRunsImmediatelyAndStops(t *testing.T) {
	f := &fakeDaily{done: make(chan struct{})}
	m := workers.NewManager(nil)
	m.Register(workers.RetentionWorker{Daily: f, UserID: func() string { return "u1" }, Every: time.Hour})
	if names := m.Names(); len(names) != 1 || names[0] != "daily-retention" {
		t.Fatalf("unexpected names %v", names)
	}
	m.Start()
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker did not run on start")
	}
	m.Stop()
	m.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[0] != "u1" {
		t.Fatalf("expected load for u1, got %v", f.users)
	}
}
