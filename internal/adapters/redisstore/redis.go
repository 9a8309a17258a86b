package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
)

const (
	indexKey       = "poker:sessions"
	maxSaveRetries = 3
)

func sessionKey(id domain.RoomID) string {
	return fmt.Sprintf("poker:session:%s", id)
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisStore keeps one JSON snapshot per session plus an index set.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, st core.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	id := st.Session.ID

	operation := func() error {
		_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, sessionKey(id), data, s.ttl)
			p.SAdd(ctx, indexKey, string(id))
			return nil
		})
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSaveRetries),
		ctx,
	)
	err = backoff.RetryNotify(operation, policy, func(err error, d time.Duration) {
		metrics.SnapshotRetries.Inc()
		log.Warn().Err(err).Str("module", "redisstore").Str("room", string(id)).Dur("next", d).Msg("retrying snapshot write")
	})
	if err != nil {
		metrics.SnapshotWrites.WithLabelValues("error").Inc()
		return err
	}
	metrics.SnapshotWrites.WithLabelValues("ok").Inc()
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id domain.RoomID) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(id))
		p.SRem(ctx, indexKey, string(id))
		return nil
	})
	return err
}

// LoadAll returns every snapshot still present. Index entries whose key
// expired are dropped.
func (s *RedisStore) LoadAll(ctx context.Context) ([]core.SessionState, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.SessionState, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, sessionKey(domain.RoomID(id))).Bytes()
		if errors.Is(err, redis.Nil) {
			s.client.SRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var st core.SessionState
		if err := json.Unmarshal(data, &st); err != nil {
			log.Warn().Err(err).Str("module", "redisstore").Str("room", id).Msg("skipping corrupt snapshot")
			continue
		}
		out = append(out, st)
	}
	return out, nil
}
