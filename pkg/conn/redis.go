package conn

import (
	"context"

	"quoteflow/internal/errors"

	"github.com/redis/go-redis/v9"
)

// NewRedis opens a client from a redis:// URL and pings it.
func NewRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}
