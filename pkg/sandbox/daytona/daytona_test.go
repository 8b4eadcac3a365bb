package daytona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appdock/appdock/pkg/sandbox"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{APIKey: "test-key", APIURL: srv.URL})
	require.NoError(t, err)

	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCreate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sandbox", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "typescript", body["language"])

		json.NewEncoder(w).Encode(map[string]string{"id": "sb-1", "state": "ready"})
	})

	sb, err := client.Create(context.Background(), sandbox.LanguageTypeScript)
	require.NoError(t, err)
	require.Equal(t, "sb-1", sb.ID)
	require.Equal(t, sandbox.StateReady, sb.State)
}

func TestGetNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Get(context.Background(), "missing")
	require.True(t, sandbox.IsNotFound(err))
}

func TestRunCommand(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/toolbox/sb-1/process/execute", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "npm install", body["command"])

		json.NewEncoder(w).Encode(map[string]any{"exitCode": 2, "result": "npm ERR!"})
	})

	res, err := client.RunCommand(context.Background(), &sandbox.Sandbox{ID: "sb-1"}, "npm install")
	require.NoError(t, err)
	require.Equal(t, 2, res.ExitCode)
	require.Equal(t, "npm ERR!", res.Output)
}

func TestRunSessionCommand(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/toolbox/sb-1/process/session/expo-tunnel/exec", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, true, body["runAsync"])

		json.NewEncoder(w).Encode(map[string]string{"cmdId": "cmd-9"})
	})

	cmd, err := client.RunSessionCommand(context.Background(), &sandbox.Sandbox{ID: "sb-1"}, "expo-tunnel", "npx expo start --tunnel")
	require.NoError(t, err)
	require.Equal(t, "cmd-9", cmd.CommandID)
}

func TestCloseSessionToleratesMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.CloseSession(context.Background(), &sandbox.Sandbox{ID: "sb-1"}, "expo-tunnel")
	require.NoError(t, err)
}

func TestDoJSONSurfacesAPIErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("quota exceeded"))
	})

	_, err := client.Create(context.Background(), sandbox.LanguageTypeScript)
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")
}
