package dailyreport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadboard/internal/dailyreport"
	"leadboard/internal/db"
	"leadboard/internal/domain"
	"leadboard/internal/store"
	"leadboard/internal/store/sqlitestore"
)

type testEnv struct {
	ctx   context.Context
	store *sqlitestore.Store
	repo  *dailyreport.Repo
	now   *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	st, err := sqlitestore.Open(ctx, db.Config{Workspace: t.TempDir()}, sqlitestore.Options{Now: clock})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	repo := dailyreport.New(st, dailyreport.Options{Now: clock, Location: time.UTC})
	return &testEnv{ctx: ctx, store: st, repo: repo, now: &now}
}

func day(y int, m time.Month, d int) string {
	return domain.FormatDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (e *testEnv) seed(t *testing.T, userID, target string) {
	t.Helper()
	err := e.store.Set(e.ctx, dailyreport.Collection, dailyreport.DocID(userID, target), map[string]any{
		"userId":      userID,
		"targetDate":  target,
		"workDate":    target,
		"reportItems": []domain.ReportItem{},
		"comments":    []domain.Comment{},
	}, false)
	if err != nil {
		t.Fatalf("seed %s: %v", target, err)
	}
}

func (e *testEnv) stored(t *testing.T, userID string) []store.Document {
	t.Helper()
	docs, err := e.store.Query(e.ctx, dailyreport.Collection, store.Eq("userId", userID))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return docs
}

func TestDocID(t *testing.T) {
	if got := dailyreport.DocID("u1", "Sat May 11 2024"); got != "u1_SatMay112024" {
		t.Fatalf("unexpected id %q", got)
	}
}

func TestLoadEvictsStaleEntries(t *testing.T) {
	env := newTestEnv(t)
	old := day(2024, 5, 5)
	env.seed(t, "u1", old)
	env.seed(t, "u1", day(2024, 5, 9))
	env.seed(t, "u2", old)

	entries, err := env.repo.Load(env.ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 || entries[0].TargetDate != day(2024, 5, 9) {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if _, err := env.store.Get(env.ctx, dailyreport.Collection, dailyreport.DocID("u1", old)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stale entry should be deleted, got %v", err)
	}
	if len(env.stored(t, "u2")) != 1 {
		t.Fatalf("another user's entries must be untouched")
	}
}

func TestRetentionBound(t *testing.T) {
	env := newTestEnv(t)
	for _, d := range []int{8, 9, 10, 11, 6} {
		env.seed(t, "u1", day(2024, 5, d))
	}
	entries, err := env.repo.Load(env.ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{day(2024, 5, 11), day(2024, 5, 10), day(2024, 5, 9)}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].TargetDate != w {
			t.Fatalf("entry %d: expected %s, got %s", i, w, entries[i].TargetDate)
		}
	}
	if n := len(env.stored(t, "u1")); n != 3 {
		t.Fatalf("store should hold 3 entries, holds %d", n)
	}

	// the horizon moves with the clock, no write needed
	*env.now = env.now.AddDate(0, 0, 5)
	entries, err = env.repo.Load(env.ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 0 || len(env.stored(t, "u1")) != 0 {
		t.Fatalf("expected everything evicted, got %d", len(entries))
	}
}

func TestSaveUpsertsAndPrunes(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "u1", day(2024, 5, 1))
	target := day(2024, 5, 11)
	entry := domain.DailyEntry{
		TargetDate: target,
		WorkDate:   day(2024, 5, 10),
		Comments:   []domain.Comment{{ID: "c1", Text: "hello"}},
	}
	if err := env.repo.Save(env.ctx, "u1", entry); err != nil {
		t.Fatalf("save: %v", err)
	}
	entry.IncludeTasksInReport = true
	if err := env.repo.Save(env.ctx, "u1", entry); err != nil {
		t.Fatalf("save again: %v", err)
	}
	docs := env.stored(t, "u1")
	if len(docs) != 1 || docs[0].ID() != dailyreport.DocID("u1", target) {
		t.Fatalf("expected one upserted entry, got %d", len(docs))
	}
	got, err := env.repo.Get(env.ctx, "u1", target)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if !got.IncludeTasksInReport || len(got.Comments) != 1 || !got.UpdatedAt.Equal(*env.now) {
		t.Fatalf("unexpected entry %+v", got)
	}
	if err := env.repo.Save(env.ctx, "", entry); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAddCompletedTaskDedup(t *testing.T) {
	env := newTestEnv(t)
	task := dailyreport.CompletedTask{DemandCode: "DMND1", TaskTitle: "Deploy", Sistema: "ERP"}
	for i := 0; i < 2; i++ {
		if err := env.repo.AddCompletedTask(env.ctx, "u1", task); err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
	}
	if err := env.repo.AddCompletedTask(env.ctx, "u1", dailyreport.CompletedTask{DemandCode: "DMND2", TaskTitle: "Deploy"}); err != nil {
		t.Fatalf("add other demand: %v", err)
	}
	e, err := env.repo.Get(env.ctx, "u1", day(2024, 5, 11))
	if err != nil || e == nil {
		t.Fatalf("get: %v %v", e, err)
	}
	if e.WorkDate != day(2024, 5, 10) || !e.IncludeTasksInReport {
		t.Fatalf("unexpected entry header %+v", e)
	}
	if len(e.ReportItems) != 2 {
		t.Fatalf("expected 2 items after dedup, got %+v", e.ReportItems)
	}
	if e.ReportItems[0].Sistema != "ERP" || e.ReportItems[0].DemandCode != "DMND1" {
		t.Fatalf("unexpected item %+v", e.ReportItems[0])
	}
}

func TestCommentsAndIncludeFlag(t *testing.T) {
	env := newTestEnv(t)
	target := day(2024, 5, 11)
	c, err := env.repo.AddComment(env.ctx, "u1", target, "Bloqueado pelo cliente")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if err := env.repo.SetIncludeTasks(env.ctx, "u1", target, false); err != nil {
		t.Fatalf("include: %v", err)
	}
	e, _ := env.repo.Get(env.ctx, "u1", target)
	if e == nil || len(e.Comments) != 1 || e.IncludeTasksInReport || e.WorkDate != day(2024, 5, 10) {
		t.Fatalf("unexpected entry %+v", e)
	}
	if err := env.repo.RemoveComment(env.ctx, "u1", target, c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.repo.RemoveComment(env.ctx, "u1", target, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if missing, err := env.repo.Get(env.ctx, "u1", day(2024, 5, 12)); err != nil || missing != nil {
		t.Fatalf("expected nil for absent entry, got %v %v", missing, err)
	}
}
