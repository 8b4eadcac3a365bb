package daemon

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
)

const (
	defaultPort       = "8080"
	defaultSandboxDir = "/sandbox/workspace"
)

// Run starts the in-sandbox daemon. It exposes command execution, named
// long-running sessions and workspace file access over HTTP so a remote
// manager can drive the sandbox without shell access.
func Run() {
	port := getenv("SANDBOX_PORT", defaultPort)
	root := getenv("SANDBOX_ROOT", defaultSandboxDir)

	sessions := newSessionStore(root)

	mux := http.NewServeMux()

	// Blocking exec
	mux.Handle("/exec", withJSON(withSandboxRoot(root, handleExec)))

	// Named sessions: /sessions, /sessions/<name>, /sessions/<name>/commands
	mux.Handle("/sessions", withJSON(sessions.handleOpen()))
	mux.Handle("/sessions/", withJSON(sessions.handleSession()))

	// File endpoints: /files/<path>
	mux.Handle("/files/", withJSON(withSandboxRoot(root, handleFiles)))

	// Health
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := ":" + port
	log.Printf("sandbox-daemon listening on %s (root=%s)", addr, filepath.Clean(root))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("sandbox-daemon server error: %v", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
