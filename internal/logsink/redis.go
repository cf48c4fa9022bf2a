package logsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink right-pushes each row as a JSON string onto a named list.
type RedisSink struct {
	client  *redis.Client
	listKey string
}

// NewRedisSink connects a Redis sink from a connection URL.
func NewRedisSink(url, listKey string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis sink: parse url: %w", err)
	}
	return &RedisSink{client: redis.NewClient(opts), listKey: listKey}, nil
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Append implements Sink.
func (s *RedisSink) Append(ctx context.Context, row Row) error {
	value, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("redis sink: marshal row: %w", err)
	}
	if err := s.client.RPush(ctx, s.listKey, value).Err(); err != nil {
		return fmt.Errorf("redis sink: rpush %s: %w", s.listKey, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
