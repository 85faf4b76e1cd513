package domain

import (
	"math"
	"time"
)

const (
	CollectionWallets        = "harvestWallets"
	CollectionCashUsage      = "collectionCashUsage"
	CollectionPayments       = "harvestWalletPayments"
	CollectionPaymentBatches = "harvestPaymentBatches"
	CollectionPickers        = "harvestPickers"
	CollectionIdempotency    = "ledgerIdempotencyKeys"
)

// WalletAccount is the money pool for one (company, project, crop type)
// triple. Amounts are integer minor units.
type WalletAccount struct {
	ID                string    `firestore:"-" json:"-"`
	CompanyID         string    `firestore:"companyId" json:"companyId"`
	ProjectID         string    `firestore:"projectId" json:"projectId"`
	CropType          string    `firestore:"cropType" json:"cropType"`
	CashReceivedTotal int64     `firestore:"cashReceivedTotal" json:"cashReceivedTotal"`
	CashPaidOutTotal  int64     `firestore:"cashPaidOutTotal" json:"cashPaidOutTotal"`
	CurrentBalance    int64     `firestore:"currentBalance" json:"currentBalance"`
	CreatedAt         time.Time `firestore:"createdAt" json:"createdAt"`
	CreatedBy         string    `firestore:"createdBy" json:"createdBy"`
	LastUpdatedAt     time.Time `firestore:"lastUpdatedAt" json:"lastUpdatedAt"`
	UpdatedBy         string    `firestore:"updatedBy" json:"updatedBy"`
}

func NewWalletAccount(id string, key WalletKey, actor string, now time.Time) WalletAccount {
	return WalletAccount{
		ID:            id,
		CompanyID:     key.CompanyID,
		ProjectID:     key.ProjectID,
		CropType:      key.CropType,
		CreatedAt:     now,
		CreatedBy:     actor,
		LastUpdatedAt: now,
		UpdatedBy:     actor,
	}
}

// Credit adds amount to the received total and the balance. It refuses
// non-positive amounts and amounts the totals cannot hold.
func (w *WalletAccount) Credit(amount int64, actor string, now time.Time) error {
	if amount <= 0 {
		return InvalidArgument("amount must be positive")
	}
	if !fits(w.CashReceivedTotal, amount) || !fits(w.CurrentBalance, amount) {
		return overflow(amount)
	}
	w.CashReceivedTotal += amount
	w.CurrentBalance += amount
	w.touch(actor, now)
	return nil
}

// Debit removes amount from the balance. The balance never goes negative.
func (w *WalletAccount) Debit(amount int64, actor string, now time.Time) error {
	if amount <= 0 {
		return InvalidArgument("amount must be positive")
	}
	if !w.CanCover(amount) {
		return FailedPrecondition(ErrInsufficientCash,
			"insufficient cash: balance %d, requested %d", w.CurrentBalance, amount)
	}
	if !fits(w.CashPaidOutTotal, amount) {
		return overflow(amount)
	}
	w.CashPaidOutTotal += amount
	w.CurrentBalance -= amount
	w.touch(actor, now)
	return nil
}

func (w *WalletAccount) CanCover(amount int64) bool {
	return w.CurrentBalance >= amount
}

// Consistent reports whether balance == received - paid out and balance >= 0.
func (w WalletAccount) Consistent() bool {
	return w.CurrentBalance >= 0 && w.CurrentBalance == w.CashReceivedTotal-w.CashPaidOutTotal
}

func (w *WalletAccount) touch(actor string, now time.Time) {
	w.LastUpdatedAt = now
	w.UpdatedBy = actor
}

type WalletKey struct {
	CompanyID string
	ProjectID string
	CropType  string
}

// CollectionUsage tracks how much has been paid out against one collection
// from one wallet. TotalDeducted only grows.
type CollectionUsage struct {
	ID            string    `firestore:"-" json:"-"`
	WalletID      string    `firestore:"walletId" json:"walletId"`
	CollectionID  string    `firestore:"collectionId" json:"collectionId"`
	CompanyID     string    `firestore:"companyId" json:"companyId"`
	ProjectID     string    `firestore:"projectId" json:"projectId"`
	CropType      string    `firestore:"cropType" json:"cropType"`
	TotalDeducted int64     `firestore:"totalDeducted" json:"totalDeducted"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
	LastUpdatedAt time.Time `firestore:"lastUpdatedAt" json:"lastUpdatedAt"`
}

func NewCollectionUsage(id string, wallet WalletAccount, collectionID string, now time.Time) CollectionUsage {
	return CollectionUsage{
		ID:            id,
		WalletID:      wallet.ID,
		CollectionID:  collectionID,
		CompanyID:     wallet.CompanyID,
		ProjectID:     wallet.ProjectID,
		CropType:      wallet.CropType,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func (u *CollectionUsage) Deduct(amount int64, now time.Time) error {
	if amount <= 0 {
		return InvalidArgument("amount must be positive")
	}
	if !fits(u.TotalDeducted, amount) {
		return overflow(amount)
	}
	u.TotalDeducted += amount
	u.LastUpdatedAt = now
	return nil
}

// SumAmounts adds non-negative amounts, failing once the total passes MaxInt64.
func SumAmounts(amounts ...int64) (int64, error) {
	var total int64
	for _, a := range amounts {
		if a < 0 {
			return 0, InvalidArgument("amount must not be negative")
		}
		if !fits(total, a) {
			return 0, overflow(a)
		}
		total += a
	}
	return total, nil
}

func fits(total, amount int64) bool {
	return amount <= math.MaxInt64-total
}

func overflow(amount int64) error {
	return FailedPrecondition(ErrAmountOverflow, "amount %d would overflow the wallet totals", amount)
}

type WalletPayment struct {
	WalletID     string    `firestore:"walletId" json:"walletId"`
	CompanyID    string    `firestore:"companyId" json:"companyId"`
	ProjectID    string    `firestore:"projectId" json:"projectId"`
	CropType     string    `firestore:"cropType" json:"cropType"`
	CollectionID string    `firestore:"collectionId" json:"collectionId"`
	PickerID     string    `firestore:"pickerId,omitempty" json:"pickerId,omitempty"`
	Amount       int64     `firestore:"amount" json:"amount"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
	CreatedBy    string    `firestore:"createdBy" json:"createdBy"`
}

type PaymentBatch struct {
	WalletID     string    `firestore:"walletId" json:"walletId"`
	CompanyID    string    `firestore:"companyId" json:"companyId"`
	ProjectID    string    `firestore:"projectId" json:"projectId"`
	CropType     string    `firestore:"cropType" json:"cropType"`
	CollectionID string    `firestore:"collectionId" json:"collectionId"`
	PickerIDs    []string  `firestore:"pickerIds" json:"pickerIds"`
	TotalAmount  int64     `firestore:"totalAmount" json:"totalAmount"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
	CreatedBy    string    `firestore:"createdBy" json:"createdBy"`
}

// Picker is the slice of a harvest picker record the ledger reads and writes.
// Other fields on the stored document are left alone.
type Picker struct {
	ID             string     `firestore:"-" json:"-"`
	TotalPay       int64      `firestore:"totalPay" json:"totalPay"`
	IsPaid         bool       `firestore:"isPaid" json:"isPaid"`
	PaidAt         *time.Time `firestore:"paidAt,omitempty" json:"paidAt,omitempty"`
	PaymentBatchID string     `firestore:"paymentBatchId,omitempty" json:"paymentBatchId,omitempty"`
}

func (p Picker) Eligible() bool {
	return p.TotalPay > 0 && !p.IsPaid
}

type IdempotencyRecord struct {
	WalletID  string    `firestore:"walletId" json:"walletId"`
	Key       string    `firestore:"key" json:"key"`
	Operation string    `firestore:"operation" json:"operation"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	CreatedBy string    `firestore:"createdBy" json:"createdBy"`
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UID   string
	Email string
}
