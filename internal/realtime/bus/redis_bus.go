package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/realtime"
)

const defaultChannelPrefix = "supportchat.rt"

type RedisConfig struct {
	Addr          string `env:"ADDR"`
	Password      string `env:"PASSWORD"`
	DB            int    `env:"DB" envDefault:"0"`
	ChannelPrefix string `env:"CHANNEL_PREFIX" envDefault:"supportchat.rt"`
}

// RedisBus publishes each room on its own channel, <prefix>.<room>, and
// forwards with a single pattern subscription.
type RedisBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewRedisBus(log *logger.Logger, cfg RedisConfig) (*RedisBus, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBusFromClient(log, rdb, cfg.ChannelPrefix), nil
}

func NewRedisBusFromClient(log *logger.Logger, rdb *goredis.Client, prefix string) *RedisBus {
	if log == nil {
		log = logger.NewNop()
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisBus{log: log.With("service", "RedisRealtimeBus"), rdb: rdb, prefix: prefix}
}

func (b *RedisBus) channel(room string) string { return b.prefix + "." + room }

func (b *RedisBus) room(channel string) (string, bool) {
	room, ok := strings.CutPrefix(channel, b.prefix+".")
	return room, ok && room != ""
}

func (b *RedisBus) Publish(ctx context.Context, env realtime.Envelope) error {
	if env.Room == "" {
		return fmt.Errorf("envelope has no room")
	}
	raw, err := json.Marshal(env.Frame)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(env.Room), raw).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, deliver func(env realtime.Envelope)) error {
	if deliver == nil {
		return fmt.Errorf("deliver callback required")
	}
	sub := b.rdb.PSubscribe(ctx, b.prefix+".*")
	// Wait for the subscription so frames published after Start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				env, err := b.decode(m.Channel, m.Payload)
				if err != nil {
					b.log.Warn("bad realtime payload", "channel", m.Channel, "error", err)
					continue
				}
				deliver(env)
			}
		}
	}()
	return nil
}

func (b *RedisBus) decode(channel, payload string) (realtime.Envelope, error) {
	room, ok := b.room(channel)
	if !ok {
		return realtime.Envelope{}, fmt.Errorf("unexpected channel %q", channel)
	}
	var f realtime.Frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return realtime.Envelope{}, err
	}
	return realtime.Envelope{Room: room, Frame: f}, nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
