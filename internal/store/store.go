// Package store is the document-store boundary: per-collection schemaless documents with
// equality queries, live queries and atomic batches.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
)

type sentinel struct{ name string }

func (s *sentinel) String() string { return s.name }

var (
	// ServerTimestamp in a write is replaced by the backend's commit time.
	ServerTimestamp any = &sentinel{"serverTimestamp"}
	// DeleteField in an update or merge removes the key from the document.
	DeleteField any = &sentinel{"deleteField"}
)

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

func Eq(field string, value any) Filter { return Filter{Field: field, Value: value} }

// Document is one stored record.
type Document interface {
	ID() string
	// DataTo decodes the document into the struct pointed to by v.
	DataTo(v any) error
}

type OpKind int

const (
	OpCreate OpKind = iota
	OpSet
	OpMerge
	OpUpdate
	OpDelete
)

// Op is one write of an atomic batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       map[string]any
}

func SetOp(collection, id string, data map[string]any) Op {
	return Op{Kind: OpSet, Collection: collection, ID: id, Data: data}
}

func MergeOp(collection, id string, data map[string]any) Op {
	return Op{Kind: OpMerge, Collection: collection, ID: id, Data: data}
}

func UpdateOp(collection, id string, data map[string]any) Op {
	return Op{Kind: OpUpdate, Collection: collection, ID: id, Data: data}
}

func DeleteOp(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

// SnapshotFunc receives the full matching result set on every change.
type SnapshotFunc func(docs []Document)

// Store is implemented by sqlitestore and firestorestore.
type Store interface {
	// Create adds a document with a store-assigned id.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set writes a document, replacing it, or merging top-level keys when merge is true.
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	// Update patches an existing document; ErrNotFound when absent.
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Watch delivers the matching set now and after every change until stop is called.
	// onErr ends the watch.
	Watch(ctx context.Context, collection string, onSnap SnapshotFunc, onErr func(error), filters ...Filter) (stop func(), err error)
	// Batch applies all ops atomically.
	Batch(ctx context.Context, ops []Op) error
	Close() error
}
