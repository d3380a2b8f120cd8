package redisad

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// KV keeps drafts as plain string values. Entries never expire; stale drafts
// are removed by the sweeper.
type KV struct{ c *redis.Client }

func New(addr, pass string, db int) *KV {
	return &KV{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// NewFromClient wraps an existing client.
func NewFromClient(c *redis.Client) *KV { return &KV{c: c} }

func (r *KV) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *KV) Close() error { return r.c.Close() }

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	return r.c.Set(ctx, key, value, 0).Err()
}

func (r *KV) Del(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}

// Keys walks the keyspace with SCAN so large databases are not blocked.
func (r *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := r.c.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	// SCAN may return a key more than once
	sort.Strings(out)
	uniq := out[:0]
	for i, k := range out {
		if i == 0 || k != out[i-1] {
			uniq = append(uniq, k)
		}
	}
	return uniq, nil
}
