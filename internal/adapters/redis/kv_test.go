package redisad_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "tripquote/internal/adapters/redis"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
)

func newKV(t *testing.T) (*redisad.KV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = kv.Close() })
	return kv, mr
}

func TestKV_GetSetDel(t *testing.T) {
	ctx := context.Background()
	kv, mr := newKV(t)

	_, ok, err := kv.Get(ctx, "quotationDraft:T1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "quotationDraft:T1", []byte(`{"v":1}`)))
	got, ok, err := kv.Get(ctx, "quotationDraft:T1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"v":1}`, string(got))
	assert.Zero(t, mr.TTL("quotationDraft:T1"), "drafts must not expire")

	require.NoError(t, kv.Del(ctx, "quotationDraft:T1"))
	require.NoError(t, kv.Del(ctx, "quotationDraft:T1"))
	assert.False(t, mr.Exists("quotationDraft:T1"))
}

func TestKV_KeysScansByPrefix(t *testing.T) {
	ctx := context.Background()
	kv, mr := newKV(t)
	for i := 0; i < 450; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("quotationDraft:T%03d", i), "{}"))
	}
	require.NoError(t, mr.Set("session:abc", "{}"))

	keys, err := kv.Keys(ctx, "quotationDraft:")
	require.NoError(t, err)
	assert.Len(t, keys, 450)
	assert.Equal(t, "quotationDraft:T000", keys[0])
	assert.NotContains(t, keys, "session:abc")
}

func TestKV_ServesDraftStore(t *testing.T) {
	ctx := context.Background()
	kv, _ := newKV(t)
	store := draft.NewStore(kv, "redis")

	store.Save(ctx, "T1", domain.QuotationFormValues{TripID: "T1", ClientName: "Asha", Days: 2})
	d, ok := store.Load(ctx, "T1")
	require.True(t, ok)
	v, err := d.Values()
	require.NoError(t, err)
	assert.Equal(t, "Asha", v.ClientName)
	assert.Equal(t, []string{"T1"}, store.ListKeys(ctx))
}

func TestKV_BackendDown(t *testing.T) {
	ctx := context.Background()
	kv, mr := newKV(t)
	mr.Close()

	_, _, err := kv.Get(ctx, "k")
	assert.Error(t, err)
	// the draft store swallows it
	store := draft.NewStore(kv, "redis")
	_, ok := store.Load(ctx, "T1")
	assert.False(t, ok)
}
