package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"company-wallet/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{Host: mr.Host(), Port: port}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client, "")
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	mr.Close()
	assert.Error(t, hc.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	mr.Close()

	_, err := NewClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: port}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis")
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
}

func TestHealthCheck_CustomName(t *testing.T) {
	assert.Equal(t, "redis-embedded", NewHealthCheck(nil, "redis-embedded").Name())
}
