package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	walletgrpc "harvest-wallet-backend/internal/api/grpc"
	"harvest-wallet-backend/internal/api/grpc/interceptor"
	"harvest-wallet-backend/internal/repository/memory"
	"harvest-wallet-backend/internal/security"
	"harvest-wallet-backend/internal/service"
)

const testSecret = "grpc-test-secret"

func startServer(t *testing.T) *walletgrpc.HarvestWalletClient {
	t.Helper()
	store := memory.NewStore(5)
	walletSvc := service.NewWalletService(store, nil, nil, service.MissingWalletReject)
	tokens := security.NewTokenManager(testSecret, "")

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(interceptor.NewAuthInterceptor(tokens).Unary()))
	walletgrpc.RegisterHarvestWalletServer(server, walletgrpc.NewWalletHandler(walletSvc))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return walletgrpc.NewHarvestWalletClient(conn)
}

func withToken(t *testing.T, uid string) context.Context {
	t.Helper()
	token, err := security.NewTokenManager(testSecret, "").GenerateAccessToken(uid, "", time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestHarvestWallet_EndToEnd(t *testing.T) {
	client := startServer(t)
	ctx := withToken(t, "manager-1")
	wallet := map[string]any{"companyId": "acme", "projectId": "north", "cropType": "pears"}

	t.Run("Top-Up", func(t *testing.T) {
		res, err := client.Invoke(ctx, "AddHarvestWalletCash", merge(wallet, map[string]any{"amount": 10000}))
		require.NoError(t, err)
		assert.Equal(t, true, res["success"])
	})

	t.Run("Payout", func(t *testing.T) {
		res, err := client.Invoke(ctx, "PayPickerFromWallet", merge(wallet, map[string]any{
			"collectionId": "C1", "payoutAmount": 4000, "pickerId": "p1",
		}))
		require.NoError(t, err)
		assert.Equal(t, true, res["success"])
	})

	t.Run("Insufficient Cash", func(t *testing.T) {
		_, err := client.Invoke(ctx, "PayPickerFromWallet", merge(wallet, map[string]any{
			"collectionId": "C1", "payoutAmount": 7000,
		}))
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("Summary", func(t *testing.T) {
		res, err := client.Invoke(ctx, "GetWalletSummary", wallet)
		require.NoError(t, err)
		assert.Equal(t, float64(6000), res["currentBalance"])
		assert.Equal(t, "acme_north_pears", res["walletId"])
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		_, err := client.Invoke(ctx, "AddHarvestWalletCash", merge(wallet, map[string]any{"amount": 12.5}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Empty Batch", func(t *testing.T) {
		_, err := client.Invoke(ctx, "PayPickersFromWalletBatch", merge(wallet, map[string]any{
			"collectionId": "C1", "pickerIds": []any{},
		}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Unknown Wallet", func(t *testing.T) {
		_, err := client.Invoke(ctx, "GetWalletSummary", map[string]any{"walletId": "missing"})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestHarvestWallet_Authentication(t *testing.T) {
	client := startServer(t)

	t.Run("Missing Token", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), "AddHarvestWalletCash", map[string]any{"amount": 1})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Forged Token", func(t *testing.T) {
		token, err := security.NewTokenManager("other-secret", "").GenerateAccessToken("intruder", "", time.Hour)
		require.NoError(t, err)
		ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
		_, err = client.Invoke(ctx, "AddHarvestWalletCash", map[string]any{"amount": 1})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Health Is Public", func(t *testing.T) {
		res, err := client.Invoke(context.Background(), "Health", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "ok", res["status"])
	})
}

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
