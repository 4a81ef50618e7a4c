package app

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/metrics"
	"github.com/roman-kulish/fhss-detector/internal/scanner"
	"github.com/roman-kulish/fhss-detector/internal/sdr/rtltcp"
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
	"github.com/roman-kulish/fhss-detector/internal/stream"
)

func TestNewMux(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	collector.OnSpectrumUpdate(spectrum.Frame{})

	session, err := scanner.New(rtltcp.DefaultConfig(), scanner.DefaultConfig())
	require.NoError(t, err)
	defer session.Close()

	hub := stream.NewHub()
	defer hub.Close()

	server := httptest.NewServer(newMux(registry, hub, session))
	defer server.Close()

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var status scanner.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, session.ID(), status.ID)
		assert.Equal(t, "disconnected", status.State)
		assert.Equal(t, rtltcp.DefaultAddress, status.Receiver)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/status", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestLogObserver_ForwardsFirstError(t *testing.T) {
	failed := make(chan error, 1)
	observer := logObserver(discardLogger(), failed)

	first := errors.New("first")
	observer.OnError(first)
	observer.OnError(errors.New("second"))
	observer.OnDroneDetected(spectrum.Detection{Classification: "Unknown FHSS"})

	require.Len(t, failed, 1)
	assert.Equal(t, first, <-failed)
}

func TestServerExited(t *testing.T) {
	assert.EqualError(t, serverExited(nil), "rtl_tcp server exited")

	cause := errors.New("exit status 1")
	assert.ErrorIs(t, serverExited(cause), cause)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
