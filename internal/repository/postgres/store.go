package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/repository"
)

const backendName = "postgres"

// Schema holds every ledger collection as JSONB documents keyed by
// (collection, id).
const Schema = `CREATE TABLE IF NOT EXISTS ledger_documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
)`

// Postgres SQLSTATEs that mean the transaction lost a race.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

type Store struct {
	db          *sql.DB
	maxAttempts int
}

func NewStore(db *sql.DB, maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Store{db: db, maxAttempts: maxAttempts}
}

func (s *Store) Migrate(ctx context.Context) error {
	logger.DatabaseCall("Migrate", "CREATE TABLE ledger_documents")
	_, err := s.db.ExecContext(ctx, Schema)
	logger.DatabaseResult("Migrate", 0, err)
	return err
}

// RunTransaction runs fn in a SERIALIZABLE transaction, re-running it when
// Postgres reports a serialization failure or deadlock.
func (s *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		logger.TransactionAttempt(backendName, attempt)
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		logger.TransactionConflict(backendName, attempt, err)
	}
	return fmt.Errorf("%w after %d attempts: %v", repository.ErrTooManyAttempts, s.maxAttempts, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn repository.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &txn{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}

func (s *Store) Scan(ctx context.Context, collection string, visit repository.VisitFunc) error {
	query := `SELECT id, data FROM ledger_documents WHERE collection = $1 ORDER BY id`
	logger.DatabaseCall("Scan", query, "collection", collection)
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return err
		}
		if err := visit(id, func(dst any) error { return json.Unmarshal(data, dst) }); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txn struct {
	ctx     context.Context
	tx      *sql.Tx
	written bool
}

func (t *txn) Get(ref repository.DocRef, dst any) (bool, error) {
	if t.written {
		return false, repository.ErrReadAfterWrite
	}
	query := `SELECT data FROM ledger_documents WHERE collection = $1 AND id = $2 FOR UPDATE`
	var data []byte
	err := t.tx.QueryRowContext(t.ctx, query, ref.Collection, ref.ID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", ref, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", ref, err)
	}
	return true, nil
}

// GetAll locks and reads documents that share a collection in one round trip.
func (t *txn) GetAll(refs []repository.DocRef, dsts []any) ([]bool, error) {
	if len(refs) != len(dsts) {
		return nil, fmt.Errorf("GetAll: %d refs but %d destinations", len(refs), len(dsts))
	}
	if t.written {
		return nil, repository.ErrReadAfterWrite
	}
	found := make([]bool, len(refs))
	if len(refs) == 0 {
		return found, nil
	}

	byCollection := make(map[string][]string)
	for _, ref := range refs {
		byCollection[ref.Collection] = append(byCollection[ref.Collection], ref.ID)
	}

	docs := make(map[repository.DocRef][]byte, len(refs))
	query := `SELECT id, data FROM ledger_documents WHERE collection = $1 AND id = ANY($2) ORDER BY id FOR UPDATE`
	for collection, ids := range byCollection {
		rows, err := t.tx.QueryContext(t.ctx, query, collection, pq.Array(ids))
		if err != nil {
			return nil, fmt.Errorf("get all %s: %w", collection, err)
		}
		for rows.Next() {
			var id string
			var data []byte
			if err := rows.Scan(&id, &data); err != nil {
				rows.Close()
				return nil, err
			}
			docs[repository.Doc(collection, id)] = data
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	for i, ref := range refs {
		data, ok := docs[ref]
		if !ok {
			continue
		}
		if err := json.Unmarshal(data, dsts[i]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ref, err)
		}
		found[i] = true
	}
	return found, nil
}

func (t *txn) Set(ref repository.DocRef, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}
	t.written = true
	query := `INSERT INTO ledger_documents (collection, id, data, updated_at) VALUES ($1, $2, $3, NOW())
	          ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	if _, err := t.tx.ExecContext(t.ctx, query, ref.Collection, ref.ID, raw); err != nil {
		return fmt.Errorf("set %s: %w", ref, err)
	}
	return nil
}

func (t *txn) Merge(ref repository.DocRef, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}
	t.written = true
	query := `UPDATE ledger_documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`
	res, err := t.tx.ExecContext(t.ctx, query, ref.Collection, ref.ID, raw)
	if err != nil {
		return fmt.Errorf("merge %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("merge %s: %w", ref, repository.ErrDocumentNotFound)
	}
	return nil
}

func (t *txn) NewRef(collection string) repository.DocRef {
	return repository.Doc(collection, uuid.NewString())
}
