//go:build integration

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBroker *Broker

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "nats",
		Tag:        "2.9",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start NATS resource: %s", err)
	}
	url := fmt.Sprintf("nats://%s", resource.GetHostPort("4222/tcp"))

	if err := pool.Retry(func() error {
		var errRetry error
		testBroker, errRetry = NewBroker(url, logger.NewNop(), "garala-test")
		return errRetry
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to NATS: %s", err)
	}

	code := m.Run()

	testBroker.Close()
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge NATS resource: %s", err)
	}
	os.Exit(code)
}

func TestPublishSubscribeKeepsOrder(t *testing.T) {
	received := make(chan []byte, 10)
	unsubscribe, err := testBroker.Subscribe("garala.conversations.c1.messages", func(data []byte) {
		received <- data
	})
	require.NoError(t, err)
	defer func() { _ = unsubscribe() }()

	for i := 1; i <= 3; i++ {
		require.NoError(t, testBroker.Publish(context.Background(), "garala.conversations.c1.messages", map[string]interface{}{"seq": i}))
	}

	for want := 1; want <= 3; want++ {
		select {
		case data := <-received:
			var payload struct {
				Seq int `json:"seq"`
			}
			require.NoError(t, json.Unmarshal(data, &payload))
			assert.Equal(t, want, payload.Seq)
		case <-time.After(5 * time.Second):
			t.Fatalf("message %d not delivered", want)
		}
	}
	assert.True(t, testBroker.Healthy())
}
