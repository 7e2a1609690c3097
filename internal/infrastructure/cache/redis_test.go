package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	hit, err := c.GetJSON(ctx, "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.SetJSON(ctx, "k", 1, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	c.Invalidate(ctx, "k")

	release, err := c.Lock(ctx, "k", time.Second, 0)
	require.NoError(t, err)
	release()
}

func TestInvalidateLogsUnreachableRedis(t *testing.T) {
	log, hook := test.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := New(rdb, log)
	t.Cleanup(func() { _ = c.Close() })

	c.Invalidate(context.Background(), "analytics:abc")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "cache invalidation failed", entry.Message)
	assert.Contains(t, entry.Data, logrus.ErrorKey)
}
