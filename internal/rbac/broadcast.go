package rbac

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const reloadChannel = "rbac.matrix.bump"

// Broadcaster tells other instances to reload their matrix after a role
// management change.
type Broadcaster struct {
	client   *redis.Client
	channel  string
	instance string
	logger   *slog.Logger
}

// NewBroadcaster builds a Broadcaster on the default channel.
func NewBroadcaster(client *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{client: client, channel: reloadChannel, instance: uuid.NewString(), logger: logger}
}

// Publish announces a new matrix version.
func (b *Broadcaster) Publish(ctx context.Context, version int64) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Publish(ctx, b.channel, b.instance+":"+strconv.FormatInt(version, 10)).Err()
}

// ListenForReload reloads store whenever another instance publishes a bump. It
// returns once the subscription is active; the listener stops with ctx.
func (b *Broadcaster) ListenForReload(ctx context.Context, store *MatrixStore) error {
	if b == nil || b.client == nil {
		return nil
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				origin, _, _ := strings.Cut(msg.Payload, ":")
				if origin == b.instance {
					continue
				}
				store.Invalidate()
				if err := store.Reload(ctx); err != nil {
					b.logger.Error("rbac reload on bump", slog.Any("error", err))
				}
			}
		}
	}()
	return nil
}
