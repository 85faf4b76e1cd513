package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest-wallet-backend/internal/repository"
)

type counter struct {
	Value int64  `json:"value"`
	Label string `json:"label,omitempty"`
}

func TestStore_RunTransaction(t *testing.T) {
	ref := repository.Doc("counters", "c1")

	t.Run("Commits Writes", func(t *testing.T) {
		s := NewStore(3)
		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			var c counter
			found, err := tx.Get(ref, &c)
			require.NoError(t, err)
			assert.False(t, found)
			return tx.Set(ref, counter{Value: 1})
		})
		require.NoError(t, err)

		var c counter
		found, err := s.Load(ref, &c)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(1), c.Value)
	})

	t.Run("Business Error Discards Writes", func(t *testing.T) {
		s := NewStore(3)
		boom := errors.New("boom")
		calls := 0
		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			calls++
			require.NoError(t, tx.Set(ref, counter{Value: 1}))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, s.Count("counters"))
	})

	t.Run("Retries After Conflicting Commit", func(t *testing.T) {
		s := NewStore(3)
		require.NoError(t, s.Put(ref, counter{Value: 10}))

		calls := 0
		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			calls++
			var c counter
			if _, err := tx.Get(ref, &c); err != nil {
				return err
			}
			if calls == 1 {
				// Another writer commits between our read and our commit.
				require.NoError(t, s.Put(ref, counter{Value: 100}))
			}
			c.Value++
			return tx.Set(ref, c)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)

		var c counter
		_, err = s.Load(ref, &c)
		require.NoError(t, err)
		assert.Equal(t, int64(101), c.Value)
	})

	t.Run("Gives Up After Max Attempts", func(t *testing.T) {
		s := NewStore(2)
		require.NoError(t, s.Put(ref, counter{Value: 1}))

		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			var c counter
			if _, err := tx.Get(ref, &c); err != nil {
				return err
			}
			require.NoError(t, s.Put(ref, counter{Value: c.Value + 1}))
			return tx.Set(ref, counter{Value: 0})
		})
		assert.ErrorIs(t, err, repository.ErrTooManyAttempts)

		var c counter
		_, _ = s.Load(ref, &c)
		assert.Equal(t, int64(3), c.Value)
	})

	t.Run("Absent Read Conflicts With Concurrent Create", func(t *testing.T) {
		s := NewStore(2)
		calls := 0
		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			calls++
			var c counter
			found, err := tx.Get(ref, &c)
			if err != nil {
				return err
			}
			if calls == 1 {
				require.False(t, found)
				require.NoError(t, s.Put(ref, counter{Value: 5}))
			}
			c.Value++
			return tx.Set(ref, c)
		})
		require.NoError(t, err)

		var c counter
		_, _ = s.Load(ref, &c)
		assert.Equal(t, int64(6), c.Value)
	})

	t.Run("Read After Write Rejected", func(t *testing.T) {
		s := NewStore(1)
		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			require.NoError(t, tx.Set(ref, counter{Value: 1}))
			var c counter
			_, err := tx.Get(repository.Doc("counters", "c2"), &c)
			return err
		})
		assert.ErrorIs(t, err, repository.ErrReadAfterWrite)
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		s := NewStore(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := s.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore_Merge(t *testing.T) {
	ref := repository.Doc("counters", "c1")

	t.Run("Keeps Other Fields", func(t *testing.T) {
		s := NewStore(1)
		require.NoError(t, s.Put(ref, counter{Value: 7, Label: "seven"}))

		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			return tx.Merge(ref, map[string]any{"value": 8})
		})
		require.NoError(t, err)

		var c counter
		_, _ = s.Load(ref, &c)
		assert.Equal(t, counter{Value: 8, Label: "seven"}, c)
	})

	t.Run("Missing Document", func(t *testing.T) {
		s := NewStore(1)
		err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
			if err := tx.Set(repository.Doc("counters", "other"), counter{Value: 1}); err != nil {
				return err
			}
			return tx.Merge(ref, map[string]any{"value": 8})
		})
		assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
		assert.Equal(t, 0, s.Count("counters"), "a failed commit must not apply earlier writes")
	})
}

func TestStore_GetAll(t *testing.T) {
	s := NewStore(1)
	require.NoError(t, s.Put(repository.Doc("counters", "a"), counter{Value: 1}))
	require.NoError(t, s.Put(repository.Doc("counters", "c"), counter{Value: 3}))

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Txn) error {
		dst := make([]counter, 3)
		found, err := tx.GetAll(
			[]repository.DocRef{repository.Doc("counters", "a"), repository.Doc("counters", "b"), repository.Doc("counters", "c")},
			[]any{&dst[0], &dst[1], &dst[2]},
		)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, true}, found)
		assert.Equal(t, int64(3), dst[2].Value)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Scan(t *testing.T) {
	s := NewStore(1)
	require.NoError(t, s.Put(repository.Doc("counters", "b"), counter{Value: 2}))
	require.NoError(t, s.Put(repository.Doc("counters", "a"), counter{Value: 1}))
	require.NoError(t, s.Put(repository.Doc("other", "z"), counter{Value: 9}))

	var ids []string
	var total int64
	err := s.Scan(context.Background(), "counters", func(id string, decode func(any) error) error {
		var c counter
		if err := decode(&c); err != nil {
			return err
		}
		ids = append(ids, id)
		total += c.Value
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, int64(3), total)
}
