package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-engine/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("Connects to a running server", func(t *testing.T) {
		// Given: a running redis
		mr := miniredis.RunT(t)

		// When: connecting to it
		client, err := New(context.Background(), config.Redis{Host: mr.Host(), Port: mr.Port()})

		// Then: the client is usable
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	})

	t.Run("Fails when nothing listens", func(t *testing.T) {
		// Given: a redis that has been stopped
		mr := miniredis.RunT(t)
		host, port := mr.Host(), mr.Port()
		mr.Close()

		// When: connecting to it
		client, err := New(context.Background(), config.Redis{Host: host, Port: port})

		// Then: the ping error is returned
		require.Error(t, err)
		assert.Nil(t, client)
	})
}
