package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// publisher is the part of the Redis client used for notifications.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// RedisNotifier publishes notifications as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	rdb     publisher
	closer  func() error
	channel string
	retries int
	delay   time.Duration
	now     func() time.Time
}

type redisMessage struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

func NewRedisNotifier(addr, password, channel string, retries int, delay time.Duration) *RedisNotifier {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RedisNotifier{
		rdb:     rdb,
		closer:  rdb.Close,
		channel: channel,
		retries: retries,
		delay:   delay,
		now:     time.Now,
	}
}

func (r *RedisNotifier) Send(ctx context.Context, msg string) error {
	payload, err := json.Marshal(redisMessage{Time: r.now().UTC(), Message: msg})
	if err != nil {
		return fmt.Errorf("redis: encode: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisNotifier) SendWithRetry(ctx context.Context, msg string) error {
	return sendWithRetry(ctx, "redis", r.retries, r.delay, func(ctx context.Context) error {
		return r.Send(ctx, msg)
	})
}

func (r *RedisNotifier) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
