package credstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/logging"
)

// Redis stores the session as a single hash.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *logging.Logger
}

// OpenRedis connects to the server in cfg and verifies it answers PING.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logging.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedis(client, cfg.Key, time.Duration(cfg.TTLMinutes)*time.Minute, log), nil
}

// NewRedis wraps an existing client. A zero ttl keeps the hash until Clear.
func NewRedis(client *redis.Client, key string, ttl time.Duration, log *logging.Logger) *Redis {
	return &Redis{client: client, key: key, ttl: ttl, log: log}
}

// Save implements Store. The old hash is dropped and the new one written
// inside MULTI/EXEC so readers never see a mix.
func (s *Redis) Save(ctx context.Context, sess domain.Session) error {
	fields := encode(sess)
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(args) == 0 {
			return nil
		}
		pipe.HSet(ctx, s.key, args...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *Redis) Load(ctx context.Context) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return resolve(ctx, fields, s, s.log)
}

// Clear implements Store.
func (s *Redis) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *Redis) Close() error {
	return s.client.Close()
}
