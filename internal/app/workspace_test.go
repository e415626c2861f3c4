package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leadboard/internal/app"
	"leadboard/internal/config"
	"leadboard/internal/demand"
	"leadboard/internal/domain"
)

type testEnv struct {
	ctx context.Context
	ws  *app.Workspace
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	cfg := config.Default("lead")
	cfg.Store.Workspace = t.TempDir()
	cfg.Report.Timezone = "UTC"
	ws, err := app.Open(ctx, cfg, nil, app.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	if err := ws.SignInLocal(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return &testEnv{ctx: ctx, ws: ws}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default("")
	cfg.Store.Backend = "postgres"
	if _, err := app.Open(context.Background(), cfg, nil, app.Options{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSignInRequiresLocalUser(t *testing.T) {
	env := newTestEnv(t)
	if env.ws.UserID() != "lead" {
		t.Fatalf("expected lead, got %q", env.ws.UserID())
	}
	if err := env.ws.Restore(env.ctx, "someone-else"); err == nil {
		t.Fatalf("expected verification failure")
	}
}

func TestCompleteTaskLogsDailyItem(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.ws.CreateDemand(env.ctx, demand.NewDemand{
		Code:            "DMND1",
		Title:           "Billing",
		Priority:        domain.PriorityHigh,
		UseDefaultTasks: true,
		Sistema:         "ERP",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d, _ := env.ws.Demands.Get(id)
	if len(d.Tasks) != 3 {
		t.Fatalf("expected configured default tasks, got %d", len(d.Tasks))
	}
	first := d.Tasks[0]

	task, err := env.ws.CompleteTask(env.ctx, id, first.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !task.Completed {
		t.Fatalf("task should be completed")
	}
	entry, err := env.ws.Daily.Get(env.ctx, "lead", "Sat May 11 2024")
	if err != nil || entry == nil {
		t.Fatalf("expected tomorrow's entry, got %v %v", entry, err)
	}
	if len(entry.ReportItems) != 1 || entry.ReportItems[0].Sistema != "ERP" || entry.ReportItems[0].Text != first.Title {
		t.Fatalf("unexpected items %+v", entry.ReportItems)
	}

	// reopening does not log anything
	if _, err := env.ws.CompleteTask(env.ctx, id, first.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entry, _ = env.ws.Daily.Get(env.ctx, "lead", "Sat May 11 2024")
	if len(entry.ReportItems) != 1 {
		t.Fatalf("reopen must not add items, got %d", len(entry.ReportItems))
	}

	if _, err := env.ws.CompleteTask(env.ctx, id, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDailyReport(t *testing.T) {
	env := newTestEnv(t)

	empty, err := env.ws.DailyReport(env.ctx, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.HasPrefix(empty, "📅 Daily - 11/05/2024") || !strings.Contains(empty, "Nenhuma atividade registrada.") {
		t.Fatalf("unexpected empty report:\n%s", empty)
	}

	id, err := env.ws.Demands.CreateDemand(env.ctx, demand.NewDemand{Code: "DMND2", Title: "Portal", Priority: domain.PriorityLow})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := env.ws.Demands.AddTask(env.ctx, id, "Ajustar layout")
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := env.ws.CompleteTask(env.ctx, id, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.ws.Daily.AddComment(env.ctx, "lead", "Sat May 11 2024", "Reunião às 10h"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	report, err := env.ws.DailyReport(env.ctx, "Sat May 11 2024")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{"📝 Observações", "• Reunião às 10h", "🖥️ Outros", "DMND2", "  • Ajustar layout"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}

	if _, err := env.ws.DailyReport(env.ctx, "not a date"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPendingAndRecent(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.ws.Demands.CreateDemand(env.ctx, demand.NewDemand{
		Code:     "DMND3",
		Title:    "Infra",
		Priority: domain.PriorityCritical,
		Status:   domain.StatusHomologacao,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	open, _ := env.ws.Demands.AddTask(env.ctx, id, "Validar")
	done, _ := env.ws.Demands.AddTask(env.ctx, id, "Publicar")
	if _, err := env.ws.Demands.ToggleTask(env.ctx, id, done.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	groups := env.ws.PendingTasks()
	if len(groups) != 1 || groups[0].Status != domain.StatusHomologacao || len(groups[0].Tasks) != 1 || groups[0].Tasks[0].Task.ID != open.ID {
		t.Fatalf("unexpected pending groups %+v", groups)
	}
	recent := env.ws.RecentlyCompleted()
	if len(recent) != 1 || recent[0].Title != "Publicar" {
		t.Fatalf("unexpected recent %+v", recent)
	}
	if r := env.ws.RecentReport(); !strings.Contains(r, "🖥️ Sem Sistema") {
		t.Fatalf("recent report should use the no-system label:\n%s", r)
	}
}
