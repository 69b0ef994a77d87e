package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"selfplay/communication"

	"github.com/stretchr/testify/require"
)

func TestStatusServer(t *testing.T) {
	ss := NewStatusServer("")
	ts := httptest.NewServer(ss.Handler())
	defer ts.Close()

	t.Run("not found before the first update", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/status")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Nil(t, ss.GetStatus())
	})

	t.Run("serves the latest status", func(t *testing.T) {
		ss.UpdateStatus(communication.Status{GamesStarted: 1})
		ss.UpdateStatus(communication.Status{GamesStarted: 2, Paused: true})

		resp, err := http.Get(ts.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status communication.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		require.Equal(t, int64(2), status.GamesStarted)
		require.True(t, status.Paused)
	})

	t.Run("returns a copy", func(t *testing.T) {
		status := ss.GetStatus()
		status.GamesStarted = 100
		require.Equal(t, int64(2), ss.GetStatus().GamesStarted)
	})

	t.Run("rejects writes", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/status", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("exposes metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "go_goroutines")
	})
}
