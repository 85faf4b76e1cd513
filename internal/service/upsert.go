package service

import (
	"harvest-wallet-backend/internal/repository"
)

// record is a document read inside a transaction, or the default that stands
// in for it when it does not exist yet. Mutate doc, then save it once all
// reads of the transaction are done.
type record[T any] struct {
	ref   repository.DocRef
	doc   T
	found bool
}

// loadOrDefault is the read half of get-or-default-then-merge: it reads ref
// and falls back to newDefault() when the document is absent.
func loadOrDefault[T any](tx repository.Txn, ref repository.DocRef, newDefault func() T) (*record[T], error) {
	doc := newDefault()
	found, err := tx.Get(ref, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		doc = newDefault()
	}
	return &record[T]{ref: ref, doc: doc, found: found}, nil
}

func (r *record[T]) save(tx repository.Txn) error {
	return tx.Set(r.ref, r.doc)
}
