package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"leadboard/internal/app"
	"leadboard/internal/config"
	"leadboard/internal/domain"
)

type testServer struct {
	URL    string
	client *http.Client
	ws     *app.Workspace
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, signedIn bool) (*testServer, func()) {
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
	if signedIn {
		if err := ws.SignInLocal(ctx); err != nil {
			t.Fatalf("sign in: %v", err)
		}
	}
	handler, err := New(Config{Workspace: ws, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		ws:     ws,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			ws.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error.Code
}

func TestSessionLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/demands", nil, nil)
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "unauthorized" {
		t.Fatalf("expected 401 before sign-in, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/session", map[string]any{"token": ""}, nil)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "login_cancelled" {
		t.Fatalf("expected login_cancelled, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/session", map[string]any{"token": "intruder"}, nil)
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/session", map[string]any{"token": "lead"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sign in: %d %s", res.StatusCode, string(data))
	}
	var session SessionResponse
	_ = json.Unmarshal(data, &session)
	if session.UserID != "lead" {
		t.Fatalf("unexpected session %+v", session)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/demands", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list after sign-in: %d %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/auth/session", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("sign out: %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/demands", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/demands", nil, map[string]string{"Authorization": "Bearer lead"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bearer token should sign in again: %d %s", res.StatusCode, string(data))
	}
}

func createDemand(t *testing.T, srv *testServer, code string, status domain.Status) DemandResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/demands", map[string]any{
		"code":            code,
		"title":           "Demand " + code,
		"priority":        "high",
		"status":          string(status),
		"sistema":         "ERP",
		"useDefaultTasks": true,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create %s: %d %s", code, res.StatusCode, string(data))
	}
	var d DemandResponse
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("unmarshal demand: %v", err)
	}
	return d
}

func TestCompleteTaskFeedsDailyReport(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	d := createDemand(t, srv, "DMND1", domain.StatusDesenvolvimento)
	if len(d.Tasks) != 3 || d.FieldValue(domain.FieldSistema) != "ERP" || d.FieldValue(domain.FieldConsultoria) != "" {
		t.Fatalf("unexpected created demand %+v", d.Demand)
	}
	task := d.Tasks[0]

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/demands/"+d.ID+"/tasks/"+task.ID+"/toggle", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/daily/2024-05-11", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get daily: %d %s", res.StatusCode, string(data))
	}
	var entry domain.DailyEntry
	_ = json.Unmarshal(data, &entry)
	if len(entry.ReportItems) != 1 || entry.ReportItems[0].DemandCode != "DMND1" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/daily/2024-05-11/report", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("report: %d %s", res.StatusCode, string(data))
	}
	var report ReportResponse
	_ = json.Unmarshal(data, &report)
	if !strings.Contains(report.Text, "🖥️ ERP") || !strings.Contains(report.Text, "  • "+task.Title) {
		t.Fatalf("unexpected report:\n%s", report.Text)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/daily/not-a-date", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d %s", res.StatusCode, string(data))
	}
}

func TestSingleTaskInProgress(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	a := createDemand(t, srv, "DMND1", domain.StatusSetup)
	b := createDemand(t, srv, "DMND2", domain.StatusHomologacao)

	for _, target := range []DemandResponse{a, b} {
		url := srv.URL + "/v0/demands/" + target.ID + "/tasks/" + target.Tasks[1].ID + "/start"
		res, data := doJSON(t, client, http.MethodPost, url, nil, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("start: %d %s", res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/current-task", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("current task: %d %s", res.StatusCode, string(data))
	}
	var current CurrentTaskResponse
	_ = json.Unmarshal(data, &current)
	if current.Current == nil || current.Current.DemandID != b.ID || current.Current.Task.ID != b.Tasks[1].ID {
		t.Fatalf("unexpected current task %+v", current.Current)
	}

	inProgress := 0
	for _, d := range srv.ws.Demands.Demands() {
		for _, task := range d.Tasks {
			if task.InProgress {
				inProgress++
			}
		}
	}
	if inProgress != 1 {
		t.Fatalf("expected exactly one task in progress, got %d", inProgress)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/views/pending", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("pending: %d %s", res.StatusCode, string(data))
	}
	var groups []struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(data, &groups)
	if len(groups) != 2 || groups[0].Status != string(domain.StatusHomologacao) {
		t.Fatalf("homologacao should rank first, got %+v", groups)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/demands/missing", nil, nil)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "not_found" {
		t.Fatalf("expected not_found, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/demands/missing/sistema", map[string]any{"value": "ERP"}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown demand, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/demands", map[string]any{
		"code":     "",
		"title":    "No code",
		"priority": "low",
	}, nil)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "bad_request" {
		t.Fatalf("expected bad_request, got %d %s", res.StatusCode, string(data))
	}
}

func TestReleaseDocs(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/release-docs", map[string]any{
		"demandCode": "DMND1",
		"title":      "Release 1",
		"content":    "notes",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}
	var created CreatedResponse
	_ = json.Unmarshal(data, &created)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/release-docs?demand_code=DMND1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", res.StatusCode, string(data))
	}
	var list []domain.ReleaseDoc
	_ = json.Unmarshal(data, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/release-docs/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/release-docs/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi should be public, got %d %s", res.StatusCode, string(data))
	}
	var doc struct {
		Components struct {
			SecuritySchemes map[string]any `json:"securitySchemes"`
		} `json:"components"`
		Paths map[string]map[string]struct {
			Security  []map[string][]string `json:"security"`
			Responses map[string]any        `json:"responses"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal openapi: %v", err)
	}
	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Fatalf("bearerAuth scheme missing")
	}
	list, ok := doc.Paths["/v0/demands"]["get"]
	if !ok {
		t.Fatalf("list-demands missing from %v", doc.Paths)
	}
	if len(list.Security) != 1 {
		t.Fatalf("demands should require bearer auth, got %v", list.Security)
	}
	if _, ok := list.Responses["default"]; !ok {
		t.Fatalf("default error response missing")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/docs", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "/v0/openapi.json") {
		t.Fatalf("unexpected docs page %d %s", res.StatusCode, string(data))
	}
}
