package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rstore "github.com/mlambe/fncs/pkg/adapters/redis"
	"github.com/mlambe/fncs/pkg/domain"
	"github.com/mlambe/fncs/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := rstore.NewFromClient(client)
	ports.RunStateStoreContract(t, store)
}

func TestRedisStore_TTLExpiresAbandonedSessions(t *testing.T) {
	mr, client := newClient(t)
	store := rstore.NewFromClient(client, rstore.WithTTL(time.Second))
	ctx := context.Background()

	state := domain.NewGenericState(domain.NewGenericTreeState("lactation"))
	require.NoError(t, store.Save(ctx, "abandoned", state))

	_, err := store.Load(ctx, "abandoned")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "abandoned")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_SaveRefreshesTTL(t *testing.T) {
	mr, client := newClient(t)
	store := rstore.NewFromClient(client, rstore.WithTTL(2*time.Second))
	ctx := context.Background()

	state := domain.NewGenericState(domain.NewGenericTreeState("lactation"))
	require.NoError(t, store.Save(ctx, "active", state))

	mr.FastForward(time.Second)
	require.NoError(t, store.Save(ctx, "active", state))
	mr.FastForward(time.Second + 500*time.Millisecond)

	// Still alive: the second save reset the clock.
	_, err := store.Load(ctx, "active")
	assert.NoError(t, err)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := rstore.NewFromClient(client, rstore.WithPrefix("tenant:ussd:"))
	ctx := context.Background()

	state := domain.NewGenericState(domain.NewGenericTreeState("t"))
	require.NoError(t, store.Save(ctx, "+260971234567", state))

	assert.True(t, mr.Exists("tenant:ussd:+260971234567"))
	assert.True(t, mr.Exists("tenant:ussd:index"))
}

func TestLocker_MutualExclusion(t *testing.T) {
	_, client := newClient(t)
	locker := rstore.NewLocker(client, "fncs:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "+260971234567", 5*time.Second)
	require.NoError(t, err)

	// Second acquisition must block until released.
	blocked, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "+260971234567", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "+260971234567", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
