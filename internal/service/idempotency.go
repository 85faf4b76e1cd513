package service

import (
	"context"
	"time"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/repository"
)

// readReplay reports whether key has already been applied to walletID. It
// must run before any write of the transaction.
func readReplay(tx repository.Txn, walletID, key, operation string) (bool, error) {
	if key == "" {
		return false, nil
	}
	if err := checkIDPart("idempotencyKey", key); err != nil {
		return false, err
	}
	var rec domain.IdempotencyRecord
	found, err := tx.Get(repository.Doc(domain.CollectionIdempotency, idempotencyID(walletID, key)), &rec)
	if err != nil || !found {
		return false, err
	}
	if rec.Operation != operation {
		return false, &domain.Error{
			Kind:    domain.KindInvalidArgument,
			Message: "idempotencyKey was already used for " + rec.Operation,
			Err:     domain.ErrIdempotencyMisuse,
		}
	}
	return true, nil
}

func writeIdempotency(tx repository.Txn, walletID, key, operation, actor string, now time.Time) error {
	if key == "" {
		return nil
	}
	return tx.Set(repository.Doc(domain.CollectionIdempotency, idempotencyID(walletID, key)), domain.IdempotencyRecord{
		WalletID:  walletID,
		Key:       key,
		Operation: operation,
		CreatedAt: now,
		CreatedBy: actor,
	})
}

func cacheKey(operation, walletID, key string) string {
	return operation + ":" + idempotencyID(walletID, key)
}

// replayCached short-circuits a request whose key the cache has already seen.
// Cache failures fall through to the transactional check.
func (s *walletService) replayCached(ctx context.Context, operation, walletID, key string) bool {
	if key == "" {
		return false
	}
	seen, err := s.cache.Seen(ctx, cacheKey(operation, walletID, key))
	if err != nil {
		logger.ExternalServiceResult("idempotency-cache", "Seen", err, "walletID", walletID)
		return false
	}
	if seen {
		logger.Info("Skipping replayed request", "operation", operation, "walletID", walletID, "idempotencyKey", key)
	}
	return seen
}

// afterCommit runs the best-effort side effects of a committed transaction.
func (s *walletService) afterCommit(ctx context.Context, operation, walletID, key string, replayed bool, event func() domain.LedgerEvent) {
	if key != "" {
		if err := s.cache.Remember(ctx, cacheKey(operation, walletID, key)); err != nil {
			logger.ExternalServiceResult("idempotency-cache", "Remember", err, "walletID", walletID)
		}
	}
	if replayed {
		logger.Info("Replayed request already applied", "operation", operation, "walletID", walletID, "idempotencyKey", key)
		return
	}

	ev := event()
	logger.ExternalServiceCall("events", "Publish", "type", ev.Type, "walletID", walletID)
	err := s.publisher.Publish(ctx, ev)
	logger.ExternalServiceResult("events", "Publish", err, "type", ev.Type, "walletID", walletID)
}
