package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/staffhub/internal/shared"
)

func TestBroadcasterReloadsOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newMemorySource(t)
	local, err := NewMatrixStore(ctx, src, nil)
	require.NoError(t, err)
	remote, err := NewMatrixStore(ctx, src, nil)
	require.NoError(t, err)

	localClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	remoteClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = localClient.Close()
		_ = remoteClient.Close()
	})

	sender := NewBroadcaster(localClient, nil)
	receiver := NewBroadcaster(remoteClient, nil)
	require.NoError(t, sender.ListenForReload(ctx, local))
	require.NoError(t, receiver.ListenForReload(ctx, remote))

	src.set(shared.RoleViewer, "dashboard:view", "audit:view")
	require.NoError(t, local.Reload(ctx))
	require.NoError(t, sender.Publish(ctx, local.Version()))

	require.Eventually(t, func() bool {
		return remote.Current().Grants(shared.RoleViewer, shared.PermAuditView)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(2), local.Version())
}

func TestBroadcasterWithoutClientIsNoop(t *testing.T) {
	var b *Broadcaster
	require.NoError(t, b.Publish(context.Background(), 1))
	require.NoError(t, b.ListenForReload(context.Background(), nil))
}
