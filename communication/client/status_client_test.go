package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"selfplay/communication"
	"selfplay/communication/server"

	"github.com/stretchr/testify/require"
)

func TestStatusClient(t *testing.T) {
	ss := server.NewStatusServer("")
	ts := httptest.NewServer(ss.Handler())
	defer ts.Close()
	client := NewStatusClient(ts.URL)

	t.Run("nothing published", func(t *testing.T) {
		_, err := client.GetStatus(context.Background())
		require.True(t, errors.Is(err, ErrNoStatus))
	})

	t.Run("round trip", func(t *testing.T) {
		start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		ss.UpdateStatus(communication.Status{StartTime: start, GamesTotal: 10, GamesStarted: 4, GamesFinished: 3, ForkPoolSize: 2})

		status, err := client.GetStatus(context.Background())
		require.NoError(t, err)
		require.Equal(t, int64(10), status.GamesTotal)
		require.Equal(t, int64(4), status.GamesStarted)
		require.Equal(t, int64(3), status.GamesFinished)
		require.Equal(t, 2, status.ForkPoolSize)
		require.True(t, start.Equal(status.StartTime))
	})

	t.Run("address without scheme", func(t *testing.T) {
		c := NewStatusClient(ts.Listener.Addr().String() + "/")
		status, err := c.GetStatus(context.Background())
		require.NoError(t, err)
		require.Equal(t, int64(10), status.GamesTotal)
	})
}
