package repository

import (
	"context"
	"errors"
)

var (
	// ErrConflict marks an attempt whose reads were invalidated by a
	// concurrent commit. Backends retry on it.
	ErrConflict = errors.New("transaction conflict")
	// ErrTooManyAttempts is returned once a transaction has lost every retry.
	ErrTooManyAttempts = errors.New("transaction retries exhausted")
	// ErrReadAfterWrite is returned when a transaction reads a document after
	// it has started writing.
	ErrReadAfterWrite = errors.New("transaction reads must happen before writes")
	// ErrDocumentNotFound is returned by Merge when the target does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// DocRef addresses a single document.
type DocRef struct {
	Collection string
	ID         string
}

func Doc(collection, id string) DocRef {
	return DocRef{Collection: collection, ID: id}
}

func (r DocRef) String() string {
	return r.Collection + "/" + r.ID
}

// Txn is the view a transaction body has of the store. All reads must be
// issued before the first write.
type Txn interface {
	// Get decodes the document at ref into dst. A missing document reports
	// found=false and leaves dst untouched.
	Get(ref DocRef, dst any) (found bool, err error)
	// GetAll reads several documents; dsts[i] receives refs[i].
	GetAll(refs []DocRef, dsts []any) ([]bool, error)
	// Set replaces the whole document.
	Set(ref DocRef, data any) error
	// Merge overwrites only the named top-level fields of an existing document.
	Merge(ref DocRef, fields map[string]any) error
	// NewRef returns a reference with a fresh, unique id in collection.
	NewRef(collection string) DocRef
}

// TxFunc is a transaction body. It may run more than once and must not have
// side effects outside tx.
type TxFunc func(ctx context.Context, tx Txn) error

// VisitFunc receives one document of a scan. decode fills dst from it.
type VisitFunc func(id string, decode func(dst any) error) error

// LedgerStore is the document store behind the wallet ledger.
type LedgerStore interface {
	// RunTransaction runs fn atomically. Writes become visible all together
	// or not at all; attempts that conflict with a concurrent commit are
	// re-run from scratch.
	RunTransaction(ctx context.Context, fn TxFunc) error
	// Scan visits every document in collection outside any transaction.
	Scan(ctx context.Context, collection string, visit VisitFunc) error
	Close() error
}
