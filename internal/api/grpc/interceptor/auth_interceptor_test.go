package interceptor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/security"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (domain.Caller, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Caller), args.Error(1)
}

func TestAuthInterceptor_Unary(t *testing.T) {
	protected := &grpc.UnaryServerInfo{FullMethod: "/harvest.wallet.v1.HarvestWallet/AddHarvestWalletCash"}
	public := &grpc.UnaryServerInfo{FullMethod: "/harvest.wallet.v1.HarvestWallet/Health"}

	echoCaller := func(ctx context.Context, req interface{}) (interface{}, error) {
		caller, ok := security.CallerFromContext(ctx)
		if !ok {
			return "anonymous", nil
		}
		return caller.UID, nil
	}

	t.Run("Public Method Skips Auth", func(t *testing.T) {
		verifier := new(MockVerifier)
		res, err := NewAuthInterceptor(verifier).Unary()(context.Background(), nil, public, echoCaller)
		assert.NoError(t, err)
		assert.Equal(t, "anonymous", res)
		verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("Injects Caller", func(t *testing.T) {
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "good-token").Return(domain.Caller{UID: "u-1"}, nil)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer good-token"))

		res, err := NewAuthInterceptor(verifier).Unary()(ctx, nil, protected, echoCaller)
		assert.NoError(t, err)
		assert.Equal(t, "u-1", res)
	})

	t.Run("Missing Metadata", func(t *testing.T) {
		_, err := NewAuthInterceptor(new(MockVerifier)).Unary()(context.Background(), nil, protected, echoCaller)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Missing Header", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-other", "1"))
		_, err := NewAuthInterceptor(new(MockVerifier)).Unary()(ctx, nil, protected, echoCaller)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Expired Token", func(t *testing.T) {
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "old").Return(domain.Caller{}, security.ErrExpiredToken)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "old"))

		_, err := NewAuthInterceptor(verifier).Unary()(ctx, nil, protected, echoCaller)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("Invalid Token", func(t *testing.T) {
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "bad").Return(domain.Caller{}, errors.New("signature mismatch"))
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer bad"))

		_, err := NewAuthInterceptor(verifier).Unary()(ctx, nil, protected, echoCaller)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}
