package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemKVStoreBasic(t *testing.T) {
	ctx := context.Background()
	kv := NewMemKVStore()

	_, err := kv.Get(ctx, []byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Put(ctx, []byte("k1"), []byte("v1")))

	has, err := kv.Has(ctx, []byte("k1"))
	require.NoError(t, err)
	require.True(t, has)

	val, err := kv.Get(ctx, []byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)

	// returned value is a copy
	val[0] = 'x'
	val, err = kv.Get(ctx, []byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)

	require.NoError(t, kv.Del(ctx, []byte("k1")))
	_, err = kv.Get(ctx, []byte("k1"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemKVStoreScanPrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewMemKVStore()

	require.NoError(t, kv.Put(ctx, []byte("blob/a/1"), []byte("one")))
	require.NoError(t, kv.Put(ctx, []byte("blob/a/2"), []byte("two")))
	require.NoError(t, kv.Put(ctx, []byte("other/x"), []byte("ignored")))

	iter, err := kv.Scan(ctx, []byte("blob/"))
	require.NoError(t, err)
	defer iter.Close()

	var keys []string
	var vals []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
		require.NoError(t, iter.View(ctx, func(v Val) error {
			vals = append(vals, string(v))
			return nil
		}))
	}

	require.Equal(t, []string{"blob/a/1", "blob/a/2"}, keys)
	require.Equal(t, []string{"one", "two"}, vals)
}

func TestMemIterInvalidBeforeNext(t *testing.T) {
	ctx := context.Background()
	kv := NewMemKVStore()
	require.NoError(t, kv.Put(ctx, []byte("k"), []byte("v")))

	iter, err := kv.Scan(ctx, nil)
	require.NoError(t, err)
	defer iter.Close()

	require.ErrorIs(t, iter.View(ctx, func(Val) error { return nil }), ErrIterItemNotValid)
}
