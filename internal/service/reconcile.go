package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/repository"
)

type reconciliationService struct {
	store repository.LedgerStore
	now   func() time.Time
}

// NewReconciliationService checks the ledger's standing invariants across
// every stored wallet.
func NewReconciliationService(store repository.LedgerStore) ReconciliationService {
	return &reconciliationService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile scans wallets and usage records and reports:
//   - wallets whose balance is not received minus paid out, or is negative
//   - wallets whose usage records do not add up to the amount paid out
//   - usage records that point at a missing wallet
func (s *reconciliationService) Reconcile(ctx context.Context) (_ *domain.ReconciliationReport, err error) {
	const method = "ReconciliationService.Reconcile"
	logger.EnterMethod(method)
	defer func() { exit(method, err) }()

	report := &domain.ReconciliationReport{StartedAt: s.now()}

	wallets := make(map[string]domain.WalletAccount)
	err = s.store.Scan(ctx, domain.CollectionWallets, func(id string, decode func(any) error) error {
		var w domain.WalletAccount
		if err := decode(&w); err != nil {
			return fmt.Errorf("decode wallet %s: %w", id, err)
		}
		w.ID = id
		wallets[id] = w
		return nil
	})
	if err != nil {
		return nil, domain.Internal(err)
	}
	report.CheckedWallets = len(wallets)

	deducted := make(map[string]int64)
	err = s.store.Scan(ctx, domain.CollectionCashUsage, func(id string, decode func(any) error) error {
		var u domain.CollectionUsage
		if err := decode(&u); err != nil {
			return fmt.Errorf("decode usage %s: %w", id, err)
		}
		report.CheckedUsage++
		if _, ok := wallets[u.WalletID]; !ok {
			report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
				WalletID: u.WalletID,
				Kind:     domain.DiscrepancyOrphanUsage,
				Actual:   u.TotalDeducted,
				Detail:   fmt.Sprintf("usage record %s references a missing wallet", id),
			})
			return nil
		}
		deducted[u.WalletID] += u.TotalDeducted
		return nil
	})
	if err != nil {
		return nil, domain.Internal(err)
	}

	ids := make([]string, 0, len(wallets))
	for id := range wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		report.Discrepancies = append(report.Discrepancies, checkWallet(wallets[id], deducted[id])...)
	}

	report.FinishedAt = s.now()
	logger.Info("Reconciliation finished",
		"wallets", report.CheckedWallets, "usage", report.CheckedUsage, "discrepancies", len(report.Discrepancies))
	return report, nil
}

func checkWallet(w domain.WalletAccount, deducted int64) []domain.Discrepancy {
	var out []domain.Discrepancy
	expected := w.CashReceivedTotal - w.CashPaidOutTotal
	if w.CurrentBalance != expected {
		out = append(out, domain.Discrepancy{
			WalletID: w.ID,
			Kind:     domain.DiscrepancyBalanceMismatch,
			Expected: expected,
			Actual:   w.CurrentBalance,
			Detail:   "currentBalance differs from cashReceivedTotal - cashPaidOutTotal",
		})
	}
	if w.CurrentBalance < 0 {
		out = append(out, domain.Discrepancy{
			WalletID: w.ID,
			Kind:     domain.DiscrepancyNegativeBalance,
			Actual:   w.CurrentBalance,
			Detail:   "currentBalance is negative",
		})
	}
	// Every payout charges the wallet and exactly one usage record by the
	// same amount.
	if deducted != w.CashPaidOutTotal {
		out = append(out, domain.Discrepancy{
			WalletID: w.ID,
			Kind:     domain.DiscrepancyUsageMismatch,
			Expected: w.CashPaidOutTotal,
			Actual:   deducted,
			Detail:   "usage records do not add up to cashPaidOutTotal",
		})
	}
	return out
}
