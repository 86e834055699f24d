package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string `json:"value"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test", time.Minute)
}

func TestFetchJSONPopulatesOnce(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "report", "2026-01")
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return payload{Value: "computed"}, nil
	}

	var first payload
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	assert.Equal(t, "computed", first.Value)

	var second payload
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))
	assert.Equal(t, "computed", second.Value)
	assert.Equal(t, 1, calls)
}

func TestBumpInvalidatesOldKeys(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	before, err := c.BuildKey(ctx, "report")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "report")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestNilCacheDelegatesToLoader(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "report")
	require.NoError(t, err)

	var out payload
	require.NoError(t, c.FetchJSON(ctx, key, &out, func(context.Context) (interface{}, error) {
		return payload{Value: "direct"}, nil
	}))
	assert.Equal(t, "direct", out.Value)
}
