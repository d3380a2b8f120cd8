// Package memory is a process-local domain.KV, used for single-node runs and
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type KV struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func New() *KV { return &KV{m: map[string][]byte{}} }

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	k.mu.Lock()
	k.m[key] = v
	k.mu.Unlock()
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.mu.Lock()
	delete(k.m, key)
	k.mu.Unlock()
	return nil
}

func (k *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.m))
	for key := range k.m {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}
