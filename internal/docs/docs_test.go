package docs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadboard/internal/db"
	"leadboard/internal/docs"
	"leadboard/internal/domain"
	"leadboard/internal/store/sqlitestore"
)

func newTestRepo(t *testing.T) (*docs.Repo, context.Context) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	st, err := sqlitestore.Open(ctx, db.Config{Workspace: t.TempDir()}, sqlitestore.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return docs.New(st, nil), ctx
}

func TestReleaseDocLifecycle(t *testing.T) {
	repo, ctx := newTestRepo(t)
	id, err := repo.CreateReleaseDoc(ctx, "u1", docs.NewReleaseDoc{DemandCode: "DMND1", Title: "Release 1", Version: "1.0.0", Content: "notes"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateReleaseDoc(ctx, "u1", docs.NewReleaseDoc{DemandCode: "DMND2", Title: "Release 2"}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	list, err := repo.ListReleaseDocs(ctx, "u1", "DMND1")
	if err != nil || len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	empty := ""
	if err := repo.UpdateReleaseDoc(ctx, "u1", id, docs.ReleaseDocPatch{Version: &empty}); err != nil {
		t.Fatalf("clear version: %v", err)
	}
	got, err := repo.GetReleaseDoc(ctx, "u1", id)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Version != "" || got.Content != "notes" || got.DemandCode != "DMND1" {
		t.Fatalf("unexpected doc %+v", got)
	}

	if other, err := repo.GetReleaseDoc(ctx, "u2", id); err != nil || other != nil {
		t.Fatalf("foreign read should be absent, got %v %v", other, err)
	}
	if err := repo.DeleteReleaseDoc(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone, err := repo.GetReleaseDoc(ctx, "u1", id); err != nil || gone != nil {
		t.Fatalf("expected nil after delete, got %v %v", gone, err)
	}
	if err := repo.DeleteReleaseDoc(ctx, "u1", id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTechDocLifecycle(t *testing.T) {
	repo, ctx := newTestRepo(t)
	if _, err := repo.CreateTechDoc(ctx, "", docs.NewTechDoc{Title: "x"}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	id, err := repo.CreateTechDoc(ctx, "u1", docs.NewTechDoc{Title: "Runbook", Category: "ops", Tags: []string{"k8s", " k8s ", ""}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := repo.ListTechDocs(ctx, "u1", "ops")
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if len(list[0].Tags) != 1 {
		t.Fatalf("tags not cleaned: %v", list[0].Tags)
	}
	empty := ""
	content := "steps"
	if err := repo.UpdateTechDoc(ctx, "u1", id, docs.TechDocPatch{Category: &empty, Content: &content}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.GetTechDoc(ctx, "u1", id)
	if got == nil || got.Category != "" || got.Content != "steps" {
		t.Fatalf("unexpected doc %+v", got)
	}
	if err := repo.UpdateTechDoc(ctx, "u1", "missing", docs.TechDocPatch{Content: &content}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
