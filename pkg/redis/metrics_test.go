package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsClient_CountsRequestsAndErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	kv := NewMetricsClient(client)
	ctx := context.Background()

	getsBefore := testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get"))
	errorsBefore := testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get"))

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	_, err = kv.Get(ctx, "missing")
	assert.True(t, IsNil(err))

	assert.Equal(t, getsBefore+2, testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get")))
	assert.Equal(t, errorsBefore, testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get")))

	require.NoError(t, kv.Delete(ctx, "k"))
	assert.NoError(t, client.HealthCheck(ctx))
}
