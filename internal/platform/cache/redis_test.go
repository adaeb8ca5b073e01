package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := ConnectRedis(RedisOptions{Addr: server.Addr()})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, client.Close())
	}()

	require.NoError(t, client.Client.Set(context.Background(), "k", "v", 0).Err())
	value, err := server.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestConnectRedisRequiresAddr(t *testing.T) {
	_, err := ConnectRedis(RedisOptions{})
	require.Error(t, err)
}

func TestConnectRedisUnreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := ConnectRedis(RedisOptions{Addr: addr})
	require.Error(t, err)
}

func TestCloseNilRedis(t *testing.T) {
	var client *Redis
	assert.NoError(t, client.Close())
}
