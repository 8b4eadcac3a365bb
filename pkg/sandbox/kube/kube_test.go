package kube

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/pkg/sandbox/daemon"
)

func daemonClientFor(t *testing.T, srv *httptest.Server) *daemon.Client {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return daemon.NewClient(host, port)
}

func TestWaitForDaemonRetriesUntilHealthy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	err := waitForDaemon(context.Background(), daemonClientFor(t, srv), 10*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	require.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestWaitForDaemonTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	err := waitForDaemon(context.Background(), daemonClientFor(t, srv), 10*time.Millisecond, 100*time.Millisecond)
	require.ErrorContains(t, err, "timed out")
}

func TestStateFromPhase(t *testing.T) {
	require.Equal(t, "creating", string(stateFromPhase("Pending")))
	require.Equal(t, "running", string(stateFromPhase("Running")))
	require.Equal(t, "destroyed", string(stateFromPhase("Succeeded")))
	require.Equal(t, "destroyed", string(stateFromPhase("Failed")))
}
