package firestore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/repository"
)

const backendName = "firestore"

// Store runs ledger transactions on Cloud Firestore. Firestore's own
// RunTransaction supplies the optimistic retry loop.
type Store struct {
	client      *firestore.Client
	maxAttempts int
}

func NewStore(client *firestore.Client, maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Store{client: client, maxAttempts: maxAttempts}
}

// NewStoreFromApp opens the Firestore client of a Firebase app.
func NewStoreFromApp(ctx context.Context, app *firebase.App, maxAttempts int) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore: %w", err)
	}
	return NewStore(client, maxAttempts), nil
}

func (s *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	attempt := 0
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		attempt++
		if attempt > 1 {
			logger.TransactionConflict(backendName, attempt-1, repository.ErrConflict)
		}
		logger.TransactionAttempt(backendName, attempt)
		return fn(ctx, &txn{client: s.client, tx: tx})
	}, firestore.MaxAttempts(s.maxAttempts))
	if err != nil && status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w after %d attempts: %v", repository.ErrTooManyAttempts, attempt, err)
	}
	return err
}

func (s *Store) Scan(ctx context.Context, collection string, visit repository.VisitFunc) error {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		if err := visit(snap.Ref.ID, snap.DataTo); err != nil {
			return err
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

type txn struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *txn) doc(ref repository.DocRef) *firestore.DocumentRef {
	return t.client.Collection(ref.Collection).Doc(ref.ID)
}

func (t *txn) Get(ref repository.DocRef, dst any) (bool, error) {
	snap, err := t.tx.Get(t.doc(ref))
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", ref, err)
	}
	if err := snap.DataTo(dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", ref, err)
	}
	return true, nil
}

func (t *txn) GetAll(refs []repository.DocRef, dsts []any) ([]bool, error) {
	if len(refs) != len(dsts) {
		return nil, fmt.Errorf("GetAll: %d refs but %d destinations", len(refs), len(dsts))
	}
	found := make([]bool, len(refs))
	if len(refs) == 0 {
		return found, nil
	}
	docRefs := make([]*firestore.DocumentRef, len(refs))
	for i, ref := range refs {
		docRefs[i] = t.doc(ref)
	}
	snaps, err := t.tx.GetAll(docRefs)
	if err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}
	for i, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		if err := snap.DataTo(dsts[i]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", refs[i], err)
		}
		found[i] = true
	}
	return found, nil
}

func (t *txn) Set(ref repository.DocRef, data any) error {
	return t.tx.Set(t.doc(ref), data)
}

func (t *txn) Merge(ref repository.DocRef, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return t.tx.Update(t.doc(ref), updates)
}

func (t *txn) NewRef(collection string) repository.DocRef {
	return repository.Doc(collection, t.client.Collection(collection).NewDoc().ID)
}
