package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/outbreak-reporting/report-client/internal/logging"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisStore_SetGetClear(t *testing.T) {
	url := setupRedis(t)

	store, err := NewRedisStore(url, "test:session", 0, logging.Discard())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Get()
	assert.False(t, ok)

	store.Set("token-a")
	token, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "token-a", token)

	store.Clear()
	store.Clear()
	_, ok = store.Get()
	assert.False(t, ok)
}

func TestRedisStore_DropsExpiredToken(t *testing.T) {
	url := setupRedis(t)

	store, err := NewRedisStore(url, "test:expired", time.Minute, logging.Discard())
	require.NoError(t, err)
	defer store.Close()

	store.Set(signedToken(t, "jane", time.Now().Add(-time.Second)))
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestRedisStore_UnreachableServerReportsAbsent(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedisStoreWithClient(client, "test:down", 0, logging.Discard())
	defer store.Close()

	assert.NotPanics(t, func() {
		store.Set("token")
		store.Clear()
	})
	_, ok := store.Get()
	assert.False(t, ok)
	assert.Error(t, store.Ping(context.Background()))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("://nope", "k", 0, logging.Discard())
	assert.Error(t, err)
}
