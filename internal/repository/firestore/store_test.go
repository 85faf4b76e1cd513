package firestore

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest-wallet-backend/internal/repository"
)

// These tests talk to the Firestore emulator and are skipped without it:
//
//	gcloud emulators firestore start --host-port=localhost:8080
//	FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./internal/repository/firestore/...
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "demo-harvest-wallet")
	require.NoError(t, err)
	s := NewStore(client, 5)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type counter struct {
	Value int64  `firestore:"value"`
	Label string `firestore:"label,omitempty"`
}

func TestStore_Emulator(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	collection := "counters-" + uuid.NewString()
	ref := repository.Doc(collection, "c1")

	err := s.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		var c counter
		found, err := tx.Get(ref, &c)
		if err != nil {
			return err
		}
		assert.False(t, found)
		return tx.Set(ref, counter{Value: 1, Label: "one"})
	})
	require.NoError(t, err)

	err = s.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		dst := make([]counter, 2)
		found, err := tx.GetAll([]repository.DocRef{ref, repository.Doc(collection, "missing")}, []any{&dst[0], &dst[1]})
		if err != nil {
			return err
		}
		assert.Equal(t, []bool{true, false}, found)
		assert.Equal(t, int64(1), dst[0].Value)
		return tx.Merge(ref, map[string]any{"value": 2})
	})
	require.NoError(t, err)

	var seen []counter
	err = s.Scan(ctx, collection, func(id string, decode func(any) error) error {
		var c counter
		if err := decode(&c); err != nil {
			return err
		}
		seen = append(seen, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []counter{{Value: 2, Label: "one"}}, seen)
}
