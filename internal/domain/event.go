package domain

import "time"

type LedgerEventType string

const (
	EventCashAdded  LedgerEventType = "wallet.cash_added"
	EventPickerPaid LedgerEventType = "wallet.picker_paid"
	EventBatchPaid  LedgerEventType = "wallet.batch_paid"
)

// LedgerEvent is published after a ledger transaction commits.
type LedgerEvent struct {
	Type         LedgerEventType `json:"type"`
	WalletID     string          `json:"walletId"`
	CompanyID    string          `json:"companyId"`
	ProjectID    string          `json:"projectId"`
	CropType     string          `json:"cropType"`
	CollectionID string          `json:"collectionId,omitempty"`
	PickerIDs    []string        `json:"pickerIds,omitempty"`
	ReferenceID  string          `json:"referenceId,omitempty"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balanceAfter"`
	Actor        string          `json:"actor"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

type DiscrepancyKind string

const (
	DiscrepancyBalanceMismatch DiscrepancyKind = "BALANCE_MISMATCH"
	DiscrepancyNegativeBalance DiscrepancyKind = "NEGATIVE_BALANCE"
	DiscrepancyUsageMismatch   DiscrepancyKind = "USAGE_MISMATCH"
	DiscrepancyOrphanUsage     DiscrepancyKind = "ORPHAN_USAGE"
)

type Discrepancy struct {
	WalletID string          `json:"walletId"`
	Kind     DiscrepancyKind `json:"kind"`
	Expected int64           `json:"expected"`
	Actual   int64           `json:"actual"`
	Detail   string          `json:"detail"`
}

type ReconciliationReport struct {
	CheckedWallets int           `json:"checkedWallets"`
	CheckedUsage   int           `json:"checkedUsage"`
	Discrepancies  []Discrepancy `json:"discrepancies"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
}

func (r *ReconciliationReport) Clean() bool {
	return len(r.Discrepancies) == 0
}
