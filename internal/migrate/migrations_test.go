package migrate_test

import (
	"context"
	"testing"

	"leadboard/internal/db"
	"leadboard/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	ms, err := migrate.Migrations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ms) < 2 || ms[0].Version != 1 || ms[1].Version != 2 {
		t.Fatalf("unexpected migrations %+v", ms)
	}
	if v, err := migrate.Version(ctx, conn); err != nil || v != 0 {
		t.Fatalf("fresh database should be at 0, got %d %v", v, err)
	}

	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != len(ms) {
		t.Fatalf("expected %d steps applied, got %d", len(ms), len(applied))
	}
	applied, err = migrate.Migrate(ctx, conn)
	if err != nil || len(applied) != 0 {
		t.Fatalf("second run should be a no-op, got %d %v", len(applied), err)
	}

	v, err := migrate.Version(ctx, conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != ms[len(ms)-1].Version {
		t.Fatalf("expected version %d, got %d", ms[len(ms)-1].Version, v)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO documents(collection,id,data,created_at,updated_at) VALUES ('c','1','{}','t','t')`); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}
