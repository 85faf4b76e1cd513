package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"harvest-wallet-backend/internal/api/callable"
	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/service"
)

type WalletHandler struct {
	ops *callable.Operations
}

func NewWalletHandler(walletSvc service.WalletService) *WalletHandler {
	return &WalletHandler{ops: callable.NewOperations(walletSvc)}
}

func (h *WalletHandler) AddHarvestWalletCash(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return invoke(ctx, h.ops.AddHarvestWalletCash, req)
}

func (h *WalletHandler) PayPickerFromWallet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return invoke(ctx, h.ops.PayPickerFromWallet, req)
}

func (h *WalletHandler) PayPickersFromWalletBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return invoke(ctx, h.ops.PayPickersFromWalletBatch, req)
}

func (h *WalletHandler) GetWalletSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return invoke(ctx, h.ops.GetWalletSummary, req)
}

func (h *WalletHandler) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

func invoke(ctx context.Context, fn callable.Func, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := fn(ctx, req.AsMap())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(res)
	if err != nil {
		logger.Error("Failed to encode response", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func toStatus(err error) error {
	msg := err.Error()
	var code codes.Code
	switch domain.KindOf(err) {
	case domain.KindUnauthenticated:
		code = codes.Unauthenticated
	case domain.KindInvalidArgument:
		code = codes.InvalidArgument
	case domain.KindFailedPrecondition:
		code = codes.FailedPrecondition
	case domain.KindNotFound:
		code = codes.NotFound
	default:
		code = codes.Internal
		msg = "internal error"
	}
	return status.Error(code, msg)
}
