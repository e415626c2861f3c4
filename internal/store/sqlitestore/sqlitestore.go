// Package sqlitestore is the local store backend: JSON documents in one SQLite table with
// in-process live queries.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadboard/internal/db"
	"leadboard/internal/logging"
	"leadboard/internal/migrate"
	"leadboard/internal/store"
)

type Options struct {
	// Now stamps created/updated columns and store.ServerTimestamp values. Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

type Store struct {
	DB  *sql.DB
	now func() time.Time

	// notifyMu serializes snapshot delivery so watchers see commits in order.
	notifyMu sync.Mutex

	wmu      sync.Mutex
	nextID   int
	watchers map[int]*watcher
}

type watcher struct {
	collection string
	filters    []store.Filter
	onSnap     store.SnapshotFunc
	onErr      func(error)
	stopped    bool
}

// Open opens (and migrates) the workspace database.
func Open(ctx context.Context, cfg db.Config, opts Options) (*Store, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log := logging.OrNop(opts.Logger).Named("sqlite")
	for _, m := range applied {
		log.Info("applied migration", zap.String("name", m.Name), zap.String("path", cfg.Path()))
	}
	return New(conn, opts), nil
}

// New wraps an already migrated connection.
func New(conn *sql.DB, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{DB: conn, now: now, watchers: map[int]*watcher{}}
}

func (s *Store) Close() error { return s.DB.Close() }

type document struct {
	id   string
	data []byte
}

func (d document) ID() string { return d.id }

func (d document) DataTo(v any) error {
	if err := json.Unmarshal(d.data, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.id, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Batch(ctx, []store.Op{{Kind: store.OpCreate, Collection: collection, ID: id, Data: data}}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	op := store.SetOp(collection, id, data)
	if merge {
		op = store.MergeOp(collection, id, data)
	}
	return s.Batch(ctx, []store.Op{op})
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) error {
	return s.Batch(ctx, []store.Op{store.UpdateOp(collection, id, data)})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []store.Op{store.DeleteOp(collection, id)})
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection=? AND id=?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return document{id: id, data: []byte(data)}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error) {
	var (
		where = []string{"collection=?"}
		args  = []any{collection}
	)
	for _, f := range filters {
		if plainField.MatchString(f.Field) {
			// literal path so the expression indexes apply
			where = append(where, fmt.Sprintf("json_extract(data, '$.%s') = ?", f.Field))
			args = append(args, sqlValue(f.Value))
			continue
		}
		where = append(where, "json_extract(data, '$.' || ?) = ?")
		args = append(args, f.Field, sqlValue(f.Value))
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`SELECT id,data FROM documents WHERE %s ORDER BY created_at, id`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []store.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		res = append(res, document{id: id, data: []byte(data)})
	}
	return res, rows.Err()
}

var plainField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func (s *Store) Watch(ctx context.Context, collection string, onSnap store.SnapshotFunc, onErr func(error), filters ...store.Filter) (func(), error) {
	w := &watcher{collection: collection, filters: filters, onSnap: onSnap, onErr: onErr}

	s.notifyMu.Lock()
	docs, err := s.Query(ctx, collection, filters...)
	if err != nil {
		s.notifyMu.Unlock()
		return nil, err
	}
	s.wmu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.wmu.Unlock()
	onSnap(docs)
	s.notifyMu.Unlock()

	// the watch ends with ctx or with stop, whichever comes first
	watchCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.wmu.Lock()
			w.stopped = true
			delete(s.watchers, id)
			s.wmu.Unlock()
			cancel()
		})
	}
	go func() {
		<-watchCtx.Done()
		stop()
	}()
	return stop, nil
}

// Batch applies ops in one SQL transaction and then notifies watchers of touched collections.
func (s *Store) Batch(ctx context.Context, ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	now := s.now().UTC()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	touched := map[string]bool{}
	for _, op := range ops {
		if err := applyOp(ctx, tx, op, now); err != nil {
			return err
		}
		touched[op.Collection] = true
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify(context.WithoutCancel(ctx), touched)
	return nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op store.Op, now time.Time) error {
	if op.ID == "" {
		return fmt.Errorf("%s: empty document id", op.Collection)
	}
	ts := now.Format(time.RFC3339Nano)
	switch op.Kind {
	case store.OpDelete:
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection=? AND id=?`, op.Collection, op.ID)
		return err
	case store.OpCreate, store.OpSet:
		fields, _, err := normalize(op.Data, now)
		if err != nil {
			return err
		}
		if op.Kind == store.OpCreate {
			raw, err := json.Marshal(fields)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO documents(collection,id,data,created_at,updated_at) VALUES (?,?,?,?,?)`,
				op.Collection, op.ID, string(raw), ts, ts)
			return err
		}
		return upsert(ctx, tx, op.Collection, op.ID, fields, ts)
	case store.OpMerge, store.OpUpdate:
		existing, found, err := load(ctx, tx, op.Collection, op.ID)
		if err != nil {
			return err
		}
		if !found && op.Kind == store.OpUpdate {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrNotFound)
		}
		fields, deletes, err := normalize(op.Data, now)
		if err != nil {
			return err
		}
		for k, v := range fields {
			existing[k] = v
		}
		for _, k := range deletes {
			delete(existing, k)
		}
		return upsert(ctx, tx, op.Collection, op.ID, existing, ts)
	}
	return fmt.Errorf("unknown op kind %d", op.Kind)
}

func load(ctx context.Context, tx *sql.Tx, collection, id string) (map[string]any, bool, error) {
	var data string
	err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection=? AND id=?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return out, true, nil
}

func upsert(ctx context.Context, tx *sql.Tx, collection, id string, fields map[string]any, ts string) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO documents(collection,id,data,created_at,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(collection,id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		collection, id, string(raw), ts, ts)
	return err
}

// normalize resolves sentinels and round-trips values through JSON so stored documents hold
// plain JSON types.
func normalize(data map[string]any, now time.Time) (map[string]any, []string, error) {
	clean := make(map[string]any, len(data))
	var deletes []string
	for k, v := range data {
		switch v {
		case store.ServerTimestamp:
			clean[k] = now.Format(time.RFC3339Nano)
		case store.DeleteField:
			deletes = append(deletes, k)
		default:
			clean[k] = v
		}
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, nil, fmt.Errorf("encode document: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, err
	}
	return out, deletes, nil
}

func (s *Store) notify(ctx context.Context, touched map[string]bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.wmu.Lock()
	var targets []*watcher
	for id := 0; id < s.nextID; id++ {
		if w, ok := s.watchers[id]; ok && touched[w.collection] {
			targets = append(targets, w)
		}
	}
	s.wmu.Unlock()

	for _, w := range targets {
		s.wmu.Lock()
		stopped := w.stopped
		s.wmu.Unlock()
		if stopped {
			continue
		}
		docs, err := s.Query(ctx, w.collection, w.filters...)
		if err != nil {
			s.drop(w)
			if w.onErr != nil {
				w.onErr(err)
			}
			continue
		}
		w.onSnap(docs)
	}
}

func (s *Store) drop(w *watcher) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	w.stopped = true
	for id, cur := range s.watchers {
		if cur == w {
			delete(s.watchers, id)
		}
	}
}
