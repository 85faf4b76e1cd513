package jobs

import (
	"context"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
)

// ReconcileWallets checks every wallet against its payment history and
// alerts operators about any discrepancy found.
func (jr *JobRunner) ReconcileWallets() {
	jr.runWithRecovery("ReconcileWallets", func() {
		jr.reconcile(context.Background())
	})
}

func (jr *JobRunner) reconcile(parent context.Context) *domain.ReconciliationReport {
	ctx, cancel := context.WithTimeout(parent, jr.jobTimeout())
	defer cancel()

	report, err := jr.services.Reconciliation.Reconcile(ctx)
	if err != nil {
		logger.Error("Failed to reconcile wallets", "error", err)
		return nil
	}

	logger.Info("Reconciled wallets",
		"wallets", report.CheckedWallets,
		"usage_records", report.CheckedUsage,
		"discrepancies", len(report.Discrepancies))

	if report.Clean() {
		return report
	}
	if err := jr.services.Alerts.NotifyDiscrepancies(ctx, report); err != nil {
		logger.Error("Failed to send reconciliation alert", "error", err)
	}
	return report
}
