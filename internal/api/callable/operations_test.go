package callable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/repository/memory"
	"harvest-wallet-backend/internal/security"
	"harvest-wallet-backend/internal/service"
)

func TestOperations_CallerCheckedBeforeDecoding(t *testing.T) {
	ops := NewOperations(service.NewWalletService(memory.NewStore(5), nil, nil, service.MissingWalletReject))
	malformed := map[string]any{"companyId": "acme", "amount": "abc", "pickerIds": "p1"}

	for name, fn := range ops.ByName() {
		t.Run(name, func(t *testing.T) {
			_, err := fn(context.Background(), malformed)
			require.Error(t, err)
			assert.Equal(t, domain.KindUnauthenticated, domain.KindOf(err))
		})
	}
}

func TestOperations_AddCashThenSummary(t *testing.T) {
	ops := NewOperations(service.NewWalletService(memory.NewStore(5), nil, nil, service.MissingWalletReject))
	ctx := security.WithCaller(context.Background(), domain.Caller{UID: "manager-1"})
	wallet := map[string]any{"companyId": "acme", "projectId": "north", "cropType": "pears"}

	_, err := ops.AddHarvestWalletCash(ctx, map[string]any{"companyId": "acme", "projectId": "north", "cropType": "pears", "amount": "abc"})
	assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))

	result, err := ops.AddHarvestWalletCash(ctx, map[string]any{"companyId": "acme", "projectId": "north", "cropType": "pears", "amount": 2500})
	require.NoError(t, err)
	assert.Equal(t, Success(), result)

	summary, err := ops.GetWalletSummary(ctx, wallet)
	require.NoError(t, err)
	assert.EqualValues(t, 2500, summary["currentBalance"])
}
