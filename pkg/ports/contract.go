package ports

import (
	"context"
	"testing"
	"time"

	"github.com/mlambe/fncs/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract verifies that a StateStore implementation
// adheres to the interface contract. Adapter test suites call it with a
// fresh store.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	key := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewGenericTreeState("contract-tree")
		state.Current = "quantityMilked"
		state.Started = true
		state.Answers["farmers"] = "Farmer Bob"

		err := store.Save(ctx, key, domain.NewGenericState(state))
		require.NoError(t, err)

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.VariantGeneric, loaded.Variant)
		require.NotNil(t, loaded.Generic)
		assert.Equal(t, "quantityMilked", loaded.Generic.Current)
		assert.Equal(t, "Farmer Bob", loaded.Generic.Answers["farmers"])
	})

	t.Run("Overwrite wins", func(t *testing.T) {
		first := domain.NewGenericTreeState("contract-tree")
		first.Current = "old"
		require.NoError(t, store.Save(ctx, key, domain.NewGenericState(first)))

		second := domain.NewPriceLookupState(&domain.PriceLookupState{Stage: domain.StageStart})
		require.NoError(t, store.Save(ctx, key, second))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.VariantPriceLookup, loaded.Variant)
		assert.Nil(t, loaded.Generic)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.NewGenericState(domain.NewGenericTreeState("t"))))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Deleting again is a no-op, not an error.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = store.Save(ctx, id1, domain.NewGenericState(domain.NewGenericTreeState("t")))
		_ = store.Save(ctx, id2, domain.NewGenericState(domain.NewGenericTreeState("t")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
