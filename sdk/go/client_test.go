package leadboardsdk_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadboard/internal/app"
	"leadboard/internal/config"
	"leadboard/internal/server"
	leadboardsdk "leadboard/sdk/go"
)

func newClient(t *testing.T) *leadboardsdk.Client {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default("lead")
	cfg.Store.Workspace = t.TempDir()
	cfg.Report.Timezone = "UTC"
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	ws, err := app.Open(ctx, cfg, nil, app.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	handler, err := server.New(server.Config{Workspace: ws})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		ws.Close()
	})
	return leadboardsdk.New(srv.URL, "")
}

func TestClientFlow(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.ListDemands(ctx)
	var apiErr *leadboardsdk.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 || apiErr.Code != "unauthorized" {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	uid, err := c.SignIn(ctx, "lead")
	if err != nil || uid != "lead" {
		t.Fatalf("sign in: %q %v", uid, err)
	}

	d, err := c.CreateDemand(ctx, leadboardsdk.NewDemand{Code: "DMND7", Title: "Portal", Priority: "critical", Sistema: "CRM"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := c.AddTask(ctx, d.ID, "Publicar", "")
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	cur, err := c.StartTask(ctx, d.ID, task.ID)
	if err != nil || cur == nil || cur.Task.ID != task.ID {
		t.Fatalf("start: %+v %v", cur, err)
	}
	done, err := c.ToggleTask(ctx, d.ID, task.ID)
	if err != nil || !done.Completed || done.InProgress {
		t.Fatalf("toggle: %+v %v", done, err)
	}
	if cur, err := c.CurrentTask(ctx); err != nil || cur != nil {
		t.Fatalf("completed task must not stay current: %+v %v", cur, err)
	}

	report, err := c.DailyReport(ctx, "2024-05-11")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(report.Text, "🖥️ CRM") || !strings.Contains(report.Text, "DMND7") {
		t.Fatalf("unexpected report:\n%s", report.Text)
	}

	if err := c.DeleteDemand(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetDemand(ctx, d.ID); !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}
