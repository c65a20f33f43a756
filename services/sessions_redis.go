package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/geezlabs/geez-bingo/game"
)

const sessionKeyPrefix = "bingo:session:"

// RedisSessionStore keeps web-form sessions in Redis so they survive process
// restarts and can be shared across instances. Expiry is Redis-native TTL;
// consumption is an atomic GETDEL, which guarantees single use.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (s *RedisSessionStore) Put(ctx context.Context, id string, sess game.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.rdb.Set(ctx, sessionKeyPrefix+id, data, game.SessionTTL).Err()
}

func (s *RedisSessionStore) Consume(ctx context.Context, id string) (game.Session, error) {
	data, err := s.rdb.GetDel(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Session{}, game.ErrSessionInvalid
	}
	if err != nil {
		return game.Session{}, fmt.Errorf("fetch session: %w", err)
	}

	var sess game.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return game.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}
