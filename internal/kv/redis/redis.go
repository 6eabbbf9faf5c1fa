package redis

import (
	"context"
	"errors"

	redislib "github.com/redis/go-redis/v9"

	"warungpos/backend/internal/kv"
)

// Store persists each collection under a prefixed redis string key. Values
// are written with no TTL: the register data must survive restarts.
type Store struct {
	client *redislib.Client
	prefix string
}

func New(addr string, password string, db int, prefix string) *Store {
	client := redislib.NewClient(&redislib.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if prefix == "" {
		prefix = "warungpos"
	}

	return &Store{client: client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+":"+key).Bytes()
	if errors.Is(err, redislib.Nil) {
		return nil, kv.ErrNoKey
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+":"+key, value, 0).Err()
}
