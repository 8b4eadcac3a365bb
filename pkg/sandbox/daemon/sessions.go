package daemon

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionStore tracks named sessions and the async commands started in them.
// A session groups long-lived processes (the Expo tunnel) so they can be
// terminated together when the session is closed.
type sessionStore struct {
	root string

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	Name     string
	OpenedAt time.Time

	commands map[string]*sessionCommand
}

type sessionCommand struct {
	ID        string
	Command   string
	StartedAt time.Time

	cmd  *exec.Cmd
	done chan struct{}

	exitCode int
	exited   bool
}

type openSessionRequest struct {
	Name string `json:"name"`
}

type sessionCommandRequest struct {
	Command string            `json:"command"`
	Env     map[string]string `json:"env,omitempty"`
}

type sessionCommandResponse struct {
	CommandID string    `json:"command_id"`
	StartedAt time.Time `json:"started_at"`
}

type sessionCommandStatus struct {
	CommandID string `json:"command_id"`
	Command   string `json:"command"`
	Running   bool   `json:"running"`
	ExitCode  int    `json:"exit_code"`
}

func newSessionStore(root string) *sessionStore {
	return &sessionStore{
		root:     root,
		sessions: make(map[string]*session),
	}
}

// handleOpen serves POST /sessions.
func (s *sessionStore) handleOpen() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		var req openSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"invalid json: %v"}`, err), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		if _, ok := s.sessions[req.Name]; !ok {
			s.sessions[req.Name] = &session{
				Name:     req.Name,
				OpenedAt: time.Now(),
				commands: make(map[string]*sessionCommand),
			}
		}
		s.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(openSessionRequest{Name: req.Name})
	})
}

// handleSession serves /sessions/<name>, /sessions/<name>/commands and
// /sessions/<name>/commands/<id>.
func (s *sessionStore) handleSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
		parts := strings.Split(rest, "/")

		switch {
		case len(parts) == 1 && r.Method == http.MethodDelete:
			s.close(parts[0])
			w.WriteHeader(http.StatusOK)
		case len(parts) == 2 && parts[1] == "commands" && r.Method == http.MethodPost:
			s.startCommand(w, r, parts[0])
		case len(parts) == 3 && parts[1] == "commands" && r.Method == http.MethodGet:
			s.commandStatus(w, parts[0], parts[2])
		default:
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		}
	})
}

func (s *sessionStore) startCommand(w http.ResponseWriter, r *http.Request, name string) {
	var req sessionCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid json: %v"}`, err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		http.Error(w, `{"error":"command is required"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[name]
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}

	cmd := exec.Command("/bin/sh", "-c", req.Command)
	cmd.Dir = s.root
	if len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	if err := cmd.Start(); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"start: %v"}`, err), http.StatusInternalServerError)
		return
	}

	sc := &sessionCommand{
		ID:        uuid.NewString(),
		Command:   req.Command,
		StartedAt: time.Now(),
		cmd:       cmd,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	sess.commands[sc.ID] = sc
	s.mu.Unlock()

	// Reap in the background; the caller never waits for completion.
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		sc.exited = true
		if exitErr, ok := err.(*exec.ExitError); ok {
			sc.exitCode = exitErr.ExitCode()
		}
		s.mu.Unlock()
		close(sc.done)
		if err != nil {
			log.Printf("session %s command %s exited: %v", name, sc.ID, err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(sessionCommandResponse{
		CommandID: sc.ID,
		StartedAt: sc.StartedAt,
	})
}

func (s *sessionStore) commandStatus(w http.ResponseWriter, name, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[name]
	if !ok {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}
	sc, ok := sess.commands[id]
	if !ok {
		http.Error(w, `{"error":"command not found"}`, http.StatusNotFound)
		return
	}

	_ = json.NewEncoder(w).Encode(sessionCommandStatus{
		CommandID: sc.ID,
		Command:   sc.Command,
		Running:   !sc.exited,
		ExitCode:  sc.exitCode,
	})
}

// close terminates every process in the session. Closing a session that was
// never opened is a no-op.
func (s *sessionStore) close(name string) {
	s.mu.Lock()
	sess, ok := s.sessions[name]
	if ok {
		delete(s.sessions, name)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	for _, sc := range sess.commands {
		if sc.cmd.Process != nil {
			_ = sc.cmd.Process.Kill()
		}
	}
}
