package store

import (
	"context"
	"errors"

	"socialhub/internal/observability"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "store:"

// redisDriver keeps each collection in one hash: field = key, value = JSON.
// Mutations WATCH the collection hash and commit with MULTI/EXEC, retrying
// when another writer touched the hash in between.
type redisDriver struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisDriver returns a driver over an existing client. The client is not
// closed by the driver.
func NewRedisDriver(rdb *redis.Client, prefix string) Driver {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &redisDriver{rdb: rdb, prefix: prefix}
}

// NewRedis returns a Store backed by NewRedisDriver.
func NewRedis(rdb *redis.Client, opts ...Option) Store {
	return New(NewRedisDriver(rdb, ""), opts...)
}

func (r *redisDriver) Name() string { return "redis" }

func (r *redisDriver) hashKey(parent string) string {
	return r.prefix + parent
}

func (r *redisDriver) Read(ctx context.Context, parent, key string) ([]byte, error) {
	v, err := r.rdb.HGet(ctx, r.hashKey(parent), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *redisDriver) ReadAll(ctx context.Context, parent string) ([]Document, error) {
	fields, err := r.rdb.HGetAll(ctx, r.hashKey(parent)).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(fields))
	for k, v := range fields {
		docs = append(docs, Document{Key: k, Value: []byte(v)})
	}
	return docs, nil
}

func (r *redisDriver) Mutate(ctx context.Context, parent, key string, fn func([]byte) ([]byte, error)) error {
	hash := r.hashKey(parent)

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, hash, key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.HDel(ctx, hash, key)
			} else {
				pipe.HSet(ctx, hash, key, next)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, hash)
		if errors.Is(err, redis.TxFailedErr) {
			observability.StoreTxRetries.WithLabelValues(r.Name()).Inc()
			continue
		}
		return err
	}
	return ErrTxConflict
}

func (r *redisDriver) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *redisDriver) Close() error { return nil }
