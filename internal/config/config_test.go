package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leadboard/internal/config"
	"leadboard/internal/domain"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default("alice")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Auth.LocalUser != "alice" {
		t.Fatalf("expected local user alice, got %q", cfg.Auth.LocalUser)
	}
	if len(cfg.Board.DefaultTasks) != 3 {
		t.Fatalf("expected 3 default tasks, got %d", len(cfg.Board.DefaultTasks))
	}
	if cfg.Board.DefaultTasks[1].Link == "" {
		t.Fatalf("release task should carry a link")
	}
	if cfg.Report.CompletedWindow != 24*time.Hour {
		t.Fatalf("expected 24h window, got %s", cfg.Report.CompletedWindow)
	}
	crit := cfg.Criticality()
	if len(crit) != 4 || crit[0] != domain.StatusOpAssistida || crit[3] != domain.StatusSetup {
		t.Fatalf("unexpected criticality %v", crit)
	}
}

func TestFromYAMLKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := config.FromYAML([]byte("report:\n  retention_days: 5\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Report.RetentionDays != 5 {
		t.Fatalf("expected override, got %d", cfg.Report.RetentionDays)
	}
	if cfg.Report.MaxEntries != 3 || cfg.Board.PendingLimit != 5 {
		t.Fatalf("defaults lost: %+v", cfg.Report)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"backend":     "store:\n  backend: mongo\n",
		"criticality": "board:\n  status_criticality: [concluido]\n",
		"firebase":    "auth:\n  mode: firebase\n",
		"timezone":    "report:\n  timezone: Mars/Olympus\n",
		"limit":       "board:\n  pending_limit: 0\n",
	}
	for name, doc := range cases {
		if _, err := config.FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOrDefaultAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if cfg.Store.Workspace != dir {
		t.Fatalf("workspace not set: %q", cfg.Store.Workspace)
	}
	if _, err := config.Load(dir); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "leadboard.yml"), []byte(config.GenerateDefault("bob")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.LocalUser != "bob" {
		t.Fatalf("expected bob, got %q", cfg.Auth.LocalUser)
	}
}
