package callable

import (
	"context"

	"harvest-wallet-backend/internal/security"
	"harvest-wallet-backend/internal/service"
)

// Func is one callable procedure: decoded payload in, result payload out.
type Func func(ctx context.Context, data map[string]any) (map[string]any, error)

type Operations struct {
	wallets service.WalletService
}

func NewOperations(wallets service.WalletService) *Operations {
	return &Operations{wallets: wallets}
}

// ByName lists the procedures under the names clients call them by.
func (o *Operations) ByName() map[string]Func {
	return map[string]Func{
		"addHarvestWalletCash":      o.AddHarvestWalletCash,
		"payPickerFromWallet":       o.PayPickerFromWallet,
		"payPickersFromWalletBatch": o.PayPickersFromWalletBatch,
		"getWalletSummary":          o.GetWalletSummary,
	}
}

func (o *Operations) AddHarvestWalletCash(ctx context.Context, data map[string]any) (map[string]any, error) {
	if _, err := security.RequireCaller(ctx); err != nil {
		return nil, err
	}
	req, err := DecodeAddCash(data)
	if err != nil {
		return nil, err
	}
	if err := o.wallets.AddCash(ctx, req); err != nil {
		return nil, err
	}
	return Success(), nil
}

func (o *Operations) PayPickerFromWallet(ctx context.Context, data map[string]any) (map[string]any, error) {
	if _, err := security.RequireCaller(ctx); err != nil {
		return nil, err
	}
	req, err := DecodePayPicker(data)
	if err != nil {
		return nil, err
	}
	if err := o.wallets.PayPicker(ctx, req); err != nil {
		return nil, err
	}
	return Success(), nil
}

func (o *Operations) PayPickersFromWalletBatch(ctx context.Context, data map[string]any) (map[string]any, error) {
	if _, err := security.RequireCaller(ctx); err != nil {
		return nil, err
	}
	req, err := DecodePayPickersBatch(data)
	if err != nil {
		return nil, err
	}
	if err := o.wallets.PayPickersBatch(ctx, req); err != nil {
		return nil, err
	}
	return Success(), nil
}

func (o *Operations) GetWalletSummary(ctx context.Context, data map[string]any) (map[string]any, error) {
	if _, err := security.RequireCaller(ctx); err != nil {
		return nil, err
	}
	req, err := DecodeWalletSummary(data)
	if err != nil {
		return nil, err
	}
	wallet, err := o.wallets.GetWalletSummary(ctx, req)
	if err != nil {
		return nil, err
	}
	return WalletSummary(wallet), nil
}
