package db_test

import (
	"os"
	"path/filepath"
	"testing"

	"leadboard/internal/db"
)

func TestOpenCreatesStateDir(t *testing.T) {
	ws := t.TempDir()
	cfg := db.Config{Workspace: ws}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	var fk int
	if err := conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign keys should be on, got %d", fk)
	}
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if want := filepath.Join(ws, db.StateDir, "leadboard.db"); cfg.Path() != want {
		t.Fatalf("unexpected path %s", cfg.Path())
	}
}
