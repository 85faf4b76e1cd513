package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/repository"
)

const backendName = "memory"

type document struct {
	data    []byte
	version int64
}

// Store is an in-process document store with optimistic concurrency: a
// transaction records the version of everything it reads and its buffered
// writes are applied only if none of those versions moved.
type Store struct {
	mu          sync.Mutex
	docs        map[repository.DocRef]document
	maxAttempts int
}

func NewStore(maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Store{
		docs:        make(map[repository.DocRef]document),
		maxAttempts: maxAttempts,
	}
}

func (s *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.TransactionAttempt(backendName, attempt)

		tx := &txn{store: s, reads: make(map[repository.DocRef]int64)}
		err := fn(ctx, tx)
		if err == nil {
			err = s.commit(tx)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		lastErr = err
		logger.TransactionConflict(backendName, attempt, err)
	}
	return fmt.Errorf("%w after %d attempts: %v", repository.ErrTooManyAttempts, s.maxAttempts, lastErr)
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, seen := range tx.reads {
		if s.docs[ref].version != seen {
			return fmt.Errorf("%w: %s changed", repository.ErrConflict, ref)
		}
	}

	// Validate merges before mutating anything so a failed commit leaves no trace.
	staged := make(map[repository.DocRef]document, len(tx.writes))
	current := func(ref repository.DocRef) (document, bool) {
		if d, ok := staged[ref]; ok {
			return d, true
		}
		d, ok := s.docs[ref]
		return d, ok
	}
	for _, w := range tx.writes {
		prev, exists := current(w.ref)
		data := w.data
		if w.fields != nil {
			if !exists {
				return fmt.Errorf("merge %s: %w", w.ref, repository.ErrDocumentNotFound)
			}
			merged, err := mergeFields(prev.data, w.fields)
			if err != nil {
				return fmt.Errorf("merge %s: %w", w.ref, err)
			}
			data = merged
		}
		staged[w.ref] = document{data: data, version: s.docs[w.ref].version + 1}
	}
	for ref, d := range staged {
		s.docs[ref] = d
	}
	return nil
}

func mergeFields(existing []byte, fields map[string]any) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(existing, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[k] = raw
	}
	return json.Marshal(doc)
}

func (s *Store) Scan(ctx context.Context, collection string, visit repository.VisitFunc) error {
	s.mu.Lock()
	type entry struct {
		id   string
		data []byte
	}
	var entries []entry
	for ref, d := range s.docs {
		if ref.Collection == collection {
			entries = append(entries, entry{id: ref.ID, data: d.data})
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := e.data
		if err := visit(e.id, func(dst any) error { return json.Unmarshal(data, dst) }); err != nil {
			return err
		}
	}
	return nil
}

// Put writes a document outside any transaction. It is how fixtures and
// externally owned records such as pickers get into the store.
func (s *Store) Put(ref repository.DocRef, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[ref] = document{data: raw, version: s.docs[ref].version + 1}
	return nil
}

// Load reads a document outside any transaction.
func (s *Store) Load(ref repository.DocRef, dst any) (bool, error) {
	s.mu.Lock()
	d, ok := s.docs[ref]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(d.data, dst)
}

// Count returns the number of documents in collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ref := range s.docs {
		if ref.Collection == collection {
			n++
		}
	}
	return n
}

func (s *Store) Close() error {
	return nil
}

type write struct {
	ref    repository.DocRef
	data   []byte
	fields map[string]any
}

type txn struct {
	store  *Store
	reads  map[repository.DocRef]int64
	writes []write
}

func (t *txn) Get(ref repository.DocRef, dst any) (bool, error) {
	if len(t.writes) > 0 {
		return false, repository.ErrReadAfterWrite
	}
	t.store.mu.Lock()
	d, ok := t.store.docs[ref]
	t.store.mu.Unlock()

	if seen, read := t.reads[ref]; read && seen != d.version {
		return false, fmt.Errorf("%w: %s changed between reads", repository.ErrConflict, ref)
	}
	t.reads[ref] = d.version
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(d.data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", ref, err)
	}
	return true, nil
}

func (t *txn) GetAll(refs []repository.DocRef, dsts []any) ([]bool, error) {
	if len(refs) != len(dsts) {
		return nil, fmt.Errorf("GetAll: %d refs but %d destinations", len(refs), len(dsts))
	}
	found := make([]bool, len(refs))
	for i, ref := range refs {
		ok, err := t.Get(ref, dsts[i])
		if err != nil {
			return nil, err
		}
		found[i] = ok
	}
	return found, nil
}

func (t *txn) Set(ref repository.DocRef, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}
	t.writes = append(t.writes, write{ref: ref, data: raw})
	return nil
}

func (t *txn) Merge(ref repository.DocRef, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	t.writes = append(t.writes, write{ref: ref, fields: fields})
	return nil
}

func (t *txn) NewRef(collection string) repository.DocRef {
	return repository.Doc(collection, uuid.NewString())
}
