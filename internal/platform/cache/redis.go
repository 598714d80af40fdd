package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const clientName = "staffhub"

// Options parses addr, which is either host:port or a redis:// URL.
func Options(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("platform/cache: parse url: %w", err)
		}
		opts.ClientName = clientName
		return opts, nil
	}
	if addr == "" {
		return nil, fmt.Errorf("platform/cache: empty address")
	}
	return &redis.Options{Addr: addr, ClientName: clientName}, nil
}

// New creates a Redis client and checks it answers.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := Options(addr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}

	return client, nil
}
