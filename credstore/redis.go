package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStore. The client is caller-owned and is
// never closed by the store.
type RedisConfig struct {
	Client redis.UniversalClient

	// Prefix namespaces every key, default "gosession".
	Prefix string

	// Channel is the pub/sub channel mutations are announced on, default
	// Prefix + ":events".
	Channel string
}

// RedisStore is the multi-process Store. Every mutation is published on the
// notification channel, so watchers in other processes observe it the same
// way in-process watchers do.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	channel string
}

// NewRedisStore validates cfg and returns the store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, errors.New("credstore: redis client is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "gosession"
	}
	channel := cfg.Channel
	if channel == "" {
		channel = prefix + ":events"
	}
	return &RedisStore{client: cfg.Client, prefix: prefix, channel: channel}, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	old, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.publish(ctx, Event{Key: key, Value: value, OldValue: old})
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	old, err := s.client.GetDel(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.publish(ctx, Event{Key: key, OldValue: old, Removed: true})
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	raw, err := s.client.Keys(ctx, s.key(prefix)+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, s.prefix+":"))
	}
	return keys, nil
}

// Watch subscribes to the notification channel. Events carry logical keys,
// without the storage prefix. The returned channel closes when ctx is done.
func (s *RedisStore) Watch(ctx context.Context) (<-chan Event, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ch := make(chan Event, watchBuffer)
	go func() {
		defer close(ch)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close releases nothing: the redis client is caller-owned and watchers are
// bound to their contexts.
func (s *RedisStore) Close() error {
	return nil
}

func (s *RedisStore) publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
