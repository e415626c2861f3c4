// Package firestorestore backs the document store with Cloud Firestore through a firebase app.
package firestorestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"leadboard/internal/logging"
	"leadboard/internal/store"
)

// NewApp initializes a firebase app. An empty credentialsFile falls back to application
// default credentials.
func NewApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}

type Store struct {
	client *firestore.Client
	log    *zap.Logger
}

// Open returns a Store over the app's default Firestore database.
func Open(ctx context.Context, app *firebase.App, log *zap.Logger) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return New(client, log), nil
}

func New(client *firestore.Client, log *zap.Logger) *Store {
	return &Store{client: client, log: logging.OrNop(log)}
}

func (s *Store) Close() error { return s.client.Close() }

type document struct {
	snap *firestore.DocumentSnapshot
}

func (d document) ID() string { return d.snap.Ref.ID }

func (d document) DataTo(v any) error { return d.snap.DataTo(v) }

// mapErr translates gRPC status codes into store sentinels.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case codes.PermissionDenied:
		return fmt.Errorf("%s: %w", what, store.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// translate swaps store sentinels for firestore ones. dropDeletes strips delete markers for
// full replacements, where firestore rejects them.
func translate(data map[string]any, dropDeletes bool) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch v {
		case store.ServerTimestamp:
			out[k] = firestore.ServerTimestamp
		case store.DeleteField:
			if !dropDeletes {
				out[k] = firestore.Delete
			}
		default:
			out[k] = v
		}
	}
	return out
}

func updates(data map[string]any) []firestore.Update {
	ups := make([]firestore.Update, 0, len(data))
	for k, v := range translate(data, false) {
		ups = append(ups, firestore.Update{Path: k, Value: v})
	}
	return ups
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, translate(data, true))
	if err != nil {
		return "", mapErr(err, "create "+collection)
	}
	return ref.ID, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	ref := s.client.Collection(collection).Doc(id)
	var err error
	if merge {
		_, err = ref.Set(ctx, translate(data, false), firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, translate(data, true))
	}
	return mapErr(err, collection+"/"+id)
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates(data))
	return mapErr(err, collection+"/"+id)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return mapErr(err, collection+"/"+id)
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err, collection+"/"+id)
	}
	if !snap.Exists() {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return document{snap: snap}, nil
}

func (s *Store) query(collection string, filters []store.Filter) firestore.Query {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	return q
}

func (s *Store) Query(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error) {
	snaps, err := s.query(collection, filters).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapErr(err, "query "+collection)
	}
	return wrap(snaps), nil
}

func wrap(snaps []*firestore.DocumentSnapshot) []store.Document {
	out := make([]store.Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, document{snap: snap})
	}
	return out
}

// Watch runs a snapshot listener on its own goroutine.
func (s *Store) Watch(ctx context.Context, collection string, onSnap store.SnapshotFunc, onErr func(error), filters ...store.Filter) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.query(collection, filters).Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				s.log.Warn("snapshot listener failed", zap.String("collection", collection), zap.Error(err))
				if onErr != nil {
					onErr(mapErr(err, "watch "+collection))
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				if onErr != nil {
					onErr(mapErr(err, "watch "+collection))
				}
				return
			}
			onSnap(wrap(docs))
		}
	}()
	return cancel, nil
}

// Batch runs ops in a single transaction.
func (s *Store) Batch(ctx context.Context, ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, op := range ops {
			col := s.client.Collection(op.Collection)
			var ref *firestore.DocumentRef
			if op.ID == "" {
				ref = col.NewDoc()
			} else {
				ref = col.Doc(op.ID)
			}
			var err error
			switch op.Kind {
			case store.OpCreate:
				err = tx.Create(ref, translate(op.Data, true))
			case store.OpSet:
				err = tx.Set(ref, translate(op.Data, true))
			case store.OpMerge:
				err = tx.Set(ref, translate(op.Data, false), firestore.MergeAll)
			case store.OpUpdate:
				err = tx.Update(ref, updates(op.Data))
			case store.OpDelete:
				err = tx.Delete(ref)
			default:
				err = fmt.Errorf("unknown op kind %d", op.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return mapErr(err, "batch")
}
