package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions defines the connection and retry behavior for the enrichment cache.
type RedisOptions struct {
	Addr           string
	Password       string
	DB             int
	ConnectTimeout time.Duration // total time allowed for connection attempts
	RetryInterval  time.Duration // initial wait between attempts, doubled each retry
	MaxWait        time.Duration // cap on the wait between attempts
	PingTimeout    time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 5 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 2 * time.Second
	}
	return o
}

// ConnectRedis creates a client and pings it with exponential backoff until
// ConnectTimeout elapses.
func ConnectRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	logger.Info("connecting to redis", zap.String("addr", opts.Addr), zap.Duration("timeout", opts.ConnectTimeout))
	attempt := 0
	wait := opts.RetryInterval
	for {
		attempt++
		pingCtx, pingCancel := context.WithTimeout(connectCtx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			if attempt > 1 {
				logger.Warn("connected to redis after retry", zap.String("addr", opts.Addr), zap.Int("attempts", attempt))
			} else {
				logger.Info("connected to redis", zap.String("addr", opts.Addr))
			}
			return client, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-connectCtx.Done():
			timer.Stop()
			_ = client.Close()
			logger.Error("redis unavailable", zap.String("addr", opts.Addr), zap.Int("attempts", attempt), zap.Error(err))
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
			logger.Warn("redis connection failed, retrying",
				zap.String("addr", opts.Addr),
				zap.Int("attempt", attempt),
				zap.Duration("next_retry_in", wait),
				zap.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}
