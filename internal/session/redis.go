package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session history in Redis lists, so conversations survive
// process restarts when several instances share one Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: "ragchat:session:"}, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.prefix+id, data).Err()
}

func (s *RedisStore) History(ctx context.Context, id string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, s.prefix+id, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode session message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
