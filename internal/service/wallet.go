package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/repository"
	"harvest-wallet-backend/internal/security"
)

const (
	opAddCash   = "addHarvestWalletCash"
	opPayPicker = "payPickerFromWallet"
	opPayBatch  = "payPickersFromWalletBatch"
)

type walletService struct {
	store     repository.LedgerStore
	validator *ValidationHelper
	publisher EventPublisher
	cache     IdempotencyCache
	policy    MissingWalletPolicy
	now       func() time.Time
}

// NewWalletService builds the ledger core. publisher and cache may be nil.
func NewWalletService(store repository.LedgerStore, publisher EventPublisher, cache IdempotencyCache, policy MissingWalletPolicy) WalletService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	if !policy.Valid() {
		policy = MissingWalletReject
	}
	return &walletService{
		store:     store,
		validator: NewValidationHelper(),
		publisher: publisher,
		cache:     cache,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *walletService) AddCash(ctx context.Context, req AddCashRequest) (err error) {
	const method = "WalletService.AddCash"
	logger.EnterMethod(method, "companyID", req.CompanyID, "projectID", req.ProjectID, "cropType", req.CropType, "amount", req.Amount)
	defer func() { exit(method, err) }()

	caller, err := security.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}
	walletID, err := ResolveWalletID(req.CompanyID, req.ProjectID, req.CropType, "")
	if err != nil {
		return err
	}
	if s.replayCached(ctx, opAddCash, walletID, req.IdempotencyKey) {
		return nil
	}
	key := domain.WalletKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, CropType: req.CropType}

	var wallet domain.WalletAccount
	var replayed bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		now := s.now()
		var err error
		if replayed, err = readReplay(tx, walletID, req.IdempotencyKey, opAddCash); err != nil || replayed {
			return err
		}
		w, err := loadOrDefault(tx, repository.Doc(domain.CollectionWallets, walletID), func() domain.WalletAccount {
			return domain.NewWalletAccount(walletID, key, caller.UID, now)
		})
		if err != nil {
			return err
		}

		if err := w.doc.Credit(req.Amount, caller.UID, now); err != nil {
			return err
		}

		if err := w.save(tx); err != nil {
			return err
		}
		if err := writeIdempotency(tx, walletID, req.IdempotencyKey, opAddCash, caller.UID, now); err != nil {
			return err
		}
		wallet = w.doc
		return nil
	})
	if err != nil {
		return transactionError(err)
	}

	s.afterCommit(ctx, opAddCash, walletID, req.IdempotencyKey, replayed, func() domain.LedgerEvent {
		return domain.LedgerEvent{
			Type:         domain.EventCashAdded,
			WalletID:     walletID,
			CompanyID:    req.CompanyID,
			ProjectID:    req.ProjectID,
			CropType:     req.CropType,
			Amount:       req.Amount,
			BalanceAfter: wallet.CurrentBalance,
			Actor:        caller.UID,
			OccurredAt:   wallet.LastUpdatedAt,
		}
	})
	return nil
}

func (s *walletService) PayPicker(ctx context.Context, req PayPickerRequest) (err error) {
	const method = "WalletService.PayPicker"
	logger.EnterMethod(method, "companyID", req.CompanyID, "projectID", req.ProjectID, "cropType", req.CropType,
		"collectionID", req.CollectionID, "pickerID", req.PickerID, "amount", req.PayoutAmount, "walletID", req.WalletID)
	defer func() { exit(method, err) }()

	caller, err := security.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}
	walletID, err := ResolveWalletID(req.CompanyID, req.ProjectID, req.CropType, req.WalletID)
	if err != nil {
		return err
	}
	if err := checkIDPart("collectionId", req.CollectionID); err != nil {
		return err
	}
	if s.replayCached(ctx, opPayPicker, walletID, req.IdempotencyKey) {
		return nil
	}
	key := domain.WalletKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, CropType: req.CropType}
	usageID := UsageID(walletID, req.CollectionID)

	var wallet domain.WalletAccount
	var paymentID string
	var replayed bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		now := s.now()
		var err error
		if replayed, err = readReplay(tx, walletID, req.IdempotencyKey, opPayPicker); err != nil || replayed {
			return err
		}
		w, err := loadOrDefault(tx, repository.Doc(domain.CollectionWallets, walletID), func() domain.WalletAccount {
			return domain.NewWalletAccount(walletID, key, caller.UID, now)
		})
		if err != nil {
			return err
		}
		u, err := loadOrDefault(tx, repository.Doc(domain.CollectionCashUsage, usageID), func() domain.CollectionUsage {
			return domain.NewCollectionUsage(usageID, w.doc, req.CollectionID, now)
		})
		if err != nil {
			return err
		}

		if err := s.requireWallet(w); err != nil {
			return err
		}
		if err := w.doc.Debit(req.PayoutAmount, caller.UID, now); err != nil {
			return err
		}
		if err := u.doc.Deduct(req.PayoutAmount, now); err != nil {
			return err
		}

		if err := w.save(tx); err != nil {
			return err
		}
		if err := u.save(tx); err != nil {
			return err
		}
		paymentRef := tx.NewRef(domain.CollectionPayments)
		if err := tx.Set(paymentRef, domain.WalletPayment{
			WalletID:     walletID,
			CompanyID:    req.CompanyID,
			ProjectID:    req.ProjectID,
			CropType:     req.CropType,
			CollectionID: req.CollectionID,
			PickerID:     req.PickerID,
			Amount:       req.PayoutAmount,
			CreatedAt:    now,
			CreatedBy:    caller.UID,
		}); err != nil {
			return err
		}
		if err := writeIdempotency(tx, walletID, req.IdempotencyKey, opPayPicker, caller.UID, now); err != nil {
			return err
		}
		wallet = w.doc
		paymentID = paymentRef.ID
		return nil
	})
	if err != nil {
		return transactionError(err)
	}

	s.afterCommit(ctx, opPayPicker, walletID, req.IdempotencyKey, replayed, func() domain.LedgerEvent {
		var pickers []string
		if req.PickerID != "" {
			pickers = []string{req.PickerID}
		}
		return domain.LedgerEvent{
			Type:         domain.EventPickerPaid,
			WalletID:     walletID,
			CompanyID:    req.CompanyID,
			ProjectID:    req.ProjectID,
			CropType:     req.CropType,
			CollectionID: req.CollectionID,
			PickerIDs:    pickers,
			ReferenceID:  paymentID,
			Amount:       req.PayoutAmount,
			BalanceAfter: wallet.CurrentBalance,
			Actor:        caller.UID,
			OccurredAt:   wallet.LastUpdatedAt,
		}
	})
	return nil
}

func (s *walletService) PayPickersBatch(ctx context.Context, req PayPickersBatchRequest) (err error) {
	const method = "WalletService.PayPickersBatch"
	logger.EnterMethod(method, "companyID", req.CompanyID, "projectID", req.ProjectID, "cropType", req.CropType,
		"collectionID", req.CollectionID, "pickers", len(req.PickerIDs), "walletID", req.WalletID)
	defer func() { exit(method, err) }()

	caller, err := security.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}
	walletID, err := ResolveWalletID(req.CompanyID, req.ProjectID, req.CropType, req.WalletID)
	if err != nil {
		return err
	}
	if err := checkIDPart("collectionId", req.CollectionID); err != nil {
		return err
	}
	pickerIDs := uniqueIDs(req.PickerIDs)
	for _, id := range pickerIDs {
		if err := checkIDPart("pickerIds", id); err != nil {
			return err
		}
	}
	if s.replayCached(ctx, opPayBatch, walletID, req.IdempotencyKey) {
		return nil
	}
	key := domain.WalletKey{CompanyID: req.CompanyID, ProjectID: req.ProjectID, CropType: req.CropType}
	usageID := UsageID(walletID, req.CollectionID)

	var wallet domain.WalletAccount
	var batch domain.PaymentBatch
	var batchID string
	var replayed bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		now := s.now()
		var err error
		if replayed, err = readReplay(tx, walletID, req.IdempotencyKey, opPayBatch); err != nil || replayed {
			return err
		}
		w, err := loadOrDefault(tx, repository.Doc(domain.CollectionWallets, walletID), func() domain.WalletAccount {
			return domain.NewWalletAccount(walletID, key, caller.UID, now)
		})
		if err != nil {
			return err
		}
		u, err := loadOrDefault(tx, repository.Doc(domain.CollectionCashUsage, usageID), func() domain.CollectionUsage {
			return domain.NewCollectionUsage(usageID, w.doc, req.CollectionID, now)
		})
		if err != nil {
			return err
		}
		eligible, err := readEligiblePickers(tx, pickerIDs)
		if err != nil {
			return err
		}

		if err := s.requireWallet(w); err != nil {
			return err
		}
		if len(eligible) == 0 {
			return domain.FailedPrecondition(domain.ErrNoEligiblePickers, "all selected pickers are already paid or have a zero amount")
		}
		eligibleIDs := make([]string, 0, len(eligible))
		amounts := make([]int64, 0, len(eligible))
		for _, p := range eligible {
			eligibleIDs = append(eligibleIDs, p.ID)
			amounts = append(amounts, p.TotalPay)
		}
		total, err := domain.SumAmounts(amounts...)
		if err != nil {
			return err
		}
		if err := w.doc.Debit(total, caller.UID, now); err != nil {
			return err
		}
		if err := u.doc.Deduct(total, now); err != nil {
			return err
		}

		if err := w.save(tx); err != nil {
			return err
		}
		if err := u.save(tx); err != nil {
			return err
		}
		batchRef := tx.NewRef(domain.CollectionPaymentBatches)
		b := domain.PaymentBatch{
			WalletID:     walletID,
			CompanyID:    req.CompanyID,
			ProjectID:    req.ProjectID,
			CropType:     req.CropType,
			CollectionID: req.CollectionID,
			PickerIDs:    eligibleIDs,
			TotalAmount:  total,
			CreatedAt:    now,
			CreatedBy:    caller.UID,
		}
		if err := tx.Set(batchRef, b); err != nil {
			return err
		}
		for _, id := range eligibleIDs {
			if err := tx.Merge(repository.Doc(domain.CollectionPickers, id), map[string]any{
				"isPaid":         true,
				"paidAt":         now,
				"paymentBatchId": batchRef.ID,
			}); err != nil {
				return err
			}
		}
		if err := writeIdempotency(tx, walletID, req.IdempotencyKey, opPayBatch, caller.UID, now); err != nil {
			return err
		}
		wallet = w.doc
		batch = b
		batchID = batchRef.ID
		return nil
	})
	if err != nil {
		return transactionError(err)
	}

	s.afterCommit(ctx, opPayBatch, walletID, req.IdempotencyKey, replayed, func() domain.LedgerEvent {
		return domain.LedgerEvent{
			Type:         domain.EventBatchPaid,
			WalletID:     walletID,
			CompanyID:    req.CompanyID,
			ProjectID:    req.ProjectID,
			CropType:     req.CropType,
			CollectionID: req.CollectionID,
			PickerIDs:    batch.PickerIDs,
			ReferenceID:  batchID,
			Amount:       batch.TotalAmount,
			BalanceAfter: wallet.CurrentBalance,
			Actor:        caller.UID,
			OccurredAt:   wallet.LastUpdatedAt,
		}
	})
	return nil
}

func (s *walletService) GetWalletSummary(ctx context.Context, req WalletSummaryRequest) (_ *domain.WalletAccount, err error) {
	const method = "WalletService.GetWalletSummary"
	logger.EnterMethod(method, "companyID", req.CompanyID, "projectID", req.ProjectID, "cropType", req.CropType, "walletID", req.WalletID)
	defer func() { exit(method, err) }()

	if _, err := security.RequireCaller(ctx); err != nil {
		return nil, err
	}
	walletID, err := ResolveWalletID(req.CompanyID, req.ProjectID, req.CropType, req.WalletID)
	if err != nil {
		return nil, err
	}

	var wallet domain.WalletAccount
	var found bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		wallet = domain.WalletAccount{}
		var err error
		found, err = tx.Get(repository.Doc(domain.CollectionWallets, walletID), &wallet)
		return err
	})
	if err != nil {
		return nil, transactionError(err)
	}
	if !found {
		return nil, domain.NotFound("wallet %s does not exist", walletID)
	}
	wallet.ID = walletID
	return &wallet, nil
}

// requireWallet applies the missing-wallet policy to a freshly loaded wallet.
func (s *walletService) requireWallet(w *record[domain.WalletAccount]) error {
	if w.found || s.policy == MissingWalletZeroBalance {
		return nil
	}
	return domain.FailedPrecondition(domain.ErrWalletNotFound, "no wallet for this harvest; add cash first")
}

func readEligiblePickers(tx repository.Txn, ids []string) ([]domain.Picker, error) {
	refs := make([]repository.DocRef, len(ids))
	pickers := make([]domain.Picker, len(ids))
	dsts := make([]any, len(ids))
	for i, id := range ids {
		refs[i] = repository.Doc(domain.CollectionPickers, id)
		dsts[i] = &pickers[i]
	}
	found, err := tx.GetAll(refs, dsts)
	if err != nil {
		return nil, err
	}

	eligible := make([]domain.Picker, 0, len(ids))
	for i, p := range pickers {
		if !found[i] || !p.Eligible() {
			continue
		}
		p.ID = ids[i]
		eligible = append(eligible, p)
	}
	return eligible, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// transactionError passes classified errors through and marks everything else
// (storage faults, exhausted retries) as internal.
func transactionError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Internal(fmt.Errorf("ledger transaction: %w", err))
}

func exit(method string, err error) {
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return
	}
	logger.ExitMethod(method)
}
