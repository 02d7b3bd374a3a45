//go:build integration

package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClient *goredis.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start Redis resource: %s", err)
	}

	if err := pool.Retry(func() error {
		var errRetry error
		testClient, errRetry = NewClient(context.Background(), resource.GetHostPort("6379/tcp"), "", 0)
		return errRetry
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to Redis: %s", err)
	}

	code := m.Run()

	_ = testClient.Close()
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge Redis resource: %s", err)
	}
	os.Exit(code)
}

func TestPreferencesStore(t *testing.T) {
	ctx := context.Background()
	store := NewPreferencesStore(testClient)
	userID := fmt.Sprintf("user-%d", time.Now().UnixNano())

	_, err := store.Load(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	saved := &domain.Preferences{
		UserID:    userID,
		Vibration: false,
		Theme:     domain.ThemeDark,
		Language:  domain.LanguageSango,
		UpdatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	ttl, err := testClient.TTL(ctx, preferencesKey(userID)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)

	assert.Error(t, store.Save(ctx, &domain.Preferences{}))
}
