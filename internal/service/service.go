package service

import (
	"context"

	"harvest-wallet-backend/internal/domain"
)

type WalletService interface {
	AddCash(ctx context.Context, req AddCashRequest) error
	PayPicker(ctx context.Context, req PayPickerRequest) error
	PayPickersBatch(ctx context.Context, req PayPickersBatchRequest) error
	GetWalletSummary(ctx context.Context, req WalletSummaryRequest) (*domain.WalletAccount, error)
}

type ReconciliationService interface {
	Reconcile(ctx context.Context) (*domain.ReconciliationReport, error)
}

// EventPublisher receives ledger events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// IdempotencyCache is a fast, advisory record of idempotency keys that have
// already been applied. The ledger store stays the source of truth.
type IdempotencyCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// AlertNotifier tells operators about reconciliation discrepancies.
type AlertNotifier interface {
	NotifyDiscrepancies(ctx context.Context, report *domain.ReconciliationReport) error
}

type MissingWalletPolicy string

const (
	// MissingWalletReject refuses payouts from a wallet that was never funded.
	MissingWalletReject MissingWalletPolicy = "reject"
	// MissingWalletZeroBalance treats an unfunded wallet as an empty one.
	MissingWalletZeroBalance MissingWalletPolicy = "zero_balance"
)

func (p MissingWalletPolicy) Valid() bool {
	return p == MissingWalletReject || p == MissingWalletZeroBalance
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }

type nopCache struct{}

func (nopCache) Seen(context.Context, string) (bool, error) { return false, nil }
func (nopCache) Remember(context.Context, string) error     { return nil }
