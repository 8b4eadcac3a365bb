package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openSession(t *testing.T, store *sessionStore, name string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"name":"`+name+`"}`))
	rec := httptest.NewRecorder()
	store.handleOpen().ServeHTTP(rec, req)

	return rec
}

func TestOpenSession(t *testing.T) {
	store := newSessionStore(t.TempDir())

	rec := openSession(t, store, "expo-tunnel")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Opening the same session again is idempotent
	rec = openSession(t, store, "expo-tunnel")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.sessions, 1)
}

func TestOpenSessionRequiresName(t *testing.T) {
	store := newSessionStore(t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"name":""}`))
	rec := httptest.NewRecorder()
	store.handleOpen().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartAndInspectSessionCommand(t *testing.T) {
	store := newSessionStore(t.TempDir())
	openSession(t, store, "expo-tunnel")

	req := httptest.NewRequest(http.MethodPost, "/sessions/expo-tunnel/commands", strings.NewReader(`{"command":"true"}`))
	rec := httptest.NewRecorder()
	store.handleSession().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var started sessionCommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.CommandID)

	// Wait for the command to be reaped, then check its status
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/sessions/expo-tunnel/commands/"+started.CommandID, nil)
		rec := httptest.NewRecorder()
		store.handleSession().ServeHTTP(rec, req)

		var status sessionCommandStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return !status.Running && status.ExitCode == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSessionCommandEnvInheritsProcessEnvironment(t *testing.T) {
	store := newSessionStore(t.TempDir())
	openSession(t, store, "expo-tunnel")

	// Extra env vars extend the inherited environment instead of replacing it
	body := `{"command":"test -n \"$PATH\" && test \"$EXPO_TUNNEL_SUBDOMAIN\" = abc123","env":{"EXPO_TUNNEL_SUBDOMAIN":"abc123"}}`
	req := httptest.NewRequest(http.MethodPost, "/sessions/expo-tunnel/commands", strings.NewReader(body))
	rec := httptest.NewRecorder()
	store.handleSession().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var started sessionCommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/sessions/expo-tunnel/commands/"+started.CommandID, nil)
		rec := httptest.NewRecorder()
		store.handleSession().ServeHTTP(rec, req)

		var status sessionCommandStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return !status.Running && status.ExitCode == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartCommandInUnknownSession(t *testing.T) {
	store := newSessionStore(t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/sessions/ghost/commands", strings.NewReader(`{"command":"true"}`))
	rec := httptest.NewRecorder()
	store.handleSession().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCloseSessionIsIdempotent(t *testing.T) {
	store := newSessionStore(t.TempDir())
	openSession(t, store, "expo-tunnel")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/sessions/expo-tunnel", nil)
		rec := httptest.NewRecorder()
		store.handleSession().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	}
}
