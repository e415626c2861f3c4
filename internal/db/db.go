// Package db opens the workspace sqlite file backing the local document store.
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// StateDir holds local state inside a workspace.
const StateDir = ".leadboard"

const fileName = "leadboard.db"

type Config struct {
	Workspace string
	// BusyTimeout in milliseconds; 5000 when zero.
	BusyTimeout int
}

func (c Config) dir() string {
	ws := c.Workspace
	if ws == "" {
		ws = "."
	}
	return filepath.Join(ws, StateDir)
}

// Path is the database file for the workspace.
func (c Config) Path() string { return filepath.Join(c.dir(), fileName) }

func (c Config) dsn() string {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = 5000
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout))
	return "file:" + c.Path() + "?" + q.Encode()
}

// Open creates the state directory when needed and opens the database with one connection,
// which serializes writers.
func Open(cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(cfg.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	conn, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path(), err)
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
