package daytona

// Package daytona implements the sandbox.Client contract on top of the
// Daytona REST API. Sandboxes are created remotely and driven through the
// toolbox process endpoints.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/appdock/appdock/pkg/sandbox"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultAPIURL = "https://app.daytona.io/api"

// ErrMissingAPIKey is returned when the client is constructed without
// credentials. Callers surface this as a configuration error before any
// sandbox is allocated.
var ErrMissingAPIKey = errors.New("daytona api key is not configured")

// Config carries the connection settings for the Daytona API.
type Config struct {
	APIKey string
	APIURL string
}

// Client is a Daytona-backed implementation of sandbox.Client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ sandbox.Client = (*Client)(nil)

// New constructs a Daytona client. The API key is mandatory.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.APIURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type createSandboxRequest struct {
	Language string `json:"language"`
}

type sandboxPayload struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

type executeRequest struct {
	Command string `json:"command"`
}

type executeResponse struct {
	ExitCode int    `json:"exitCode"`
	Result   string `json:"result"`
}

type createSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type sessionExecuteRequest struct {
	Command  string `json:"command"`
	RunAsync bool   `json:"runAsync"`
}

type sessionExecuteResponse struct {
	CmdID string `json:"cmdId"`
}

// Create allocates a new sandbox for the given language hint.
func (c *Client) Create(ctx context.Context, language string) (*sandbox.Sandbox, error) {
	var out sandboxPayload
	if err := c.doJSON(ctx, http.MethodPost, "/sandbox", createSandboxRequest{Language: language}, &out); err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	return toSandbox(&out), nil
}

// Get returns the sandbox with the given id.
func (c *Client) Get(ctx context.Context, id string) (*sandbox.Sandbox, error) {
	var out sandboxPayload
	err := c.doJSON(ctx, http.MethodGet, "/sandbox/"+url.PathEscape(id), nil, &out)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, &sandbox.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("get sandbox: %w", err)
	}
	return toSandbox(&out), nil
}

// Delete destroys the sandbox.
func (c *Client) Delete(ctx context.Context, sb *sandbox.Sandbox) error {
	err := c.doJSON(ctx, http.MethodDelete, "/sandbox/"+url.PathEscape(sb.ID), nil, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return &sandbox.NotFoundError{ID: sb.ID}
		}
		return fmt.Errorf("delete sandbox: %w", err)
	}
	return nil
}

// RunCommand executes a shell command inside the sandbox and blocks until it
// completes. A non-zero exit code is not an error at this layer; callers
// inspect the result.
func (c *Client) RunCommand(ctx context.Context, sb *sandbox.Sandbox, command string) (*sandbox.CommandResult, error) {
	var out executeResponse
	p := c.toolboxPath(sb.ID, "process/execute")
	if err := c.doJSON(ctx, http.MethodPost, p, executeRequest{Command: command}, &out); err != nil {
		return nil, fmt.Errorf("run command: %w", err)
	}
	return &sandbox.CommandResult{
		ExitCode: out.ExitCode,
		Output:   out.Result,
	}, nil
}

// OpenSession creates a named session inside the sandbox.
func (c *Client) OpenSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	p := c.toolboxPath(sb.ID, "process/session")
	if err := c.doJSON(ctx, http.MethodPost, p, createSessionRequest{SessionID: name}, nil); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return nil
}

// RunSessionCommand starts a command in a named session without waiting for
// it to complete.
func (c *Client) RunSessionCommand(ctx context.Context, sb *sandbox.Sandbox, session string, command string) (*sandbox.SessionCommand, error) {
	var out sessionExecuteResponse
	p := c.toolboxPath(sb.ID, "process/session", session, "exec")
	if err := c.doJSON(ctx, http.MethodPost, p, sessionExecuteRequest{Command: command, RunAsync: true}, &out); err != nil {
		return nil, fmt.Errorf("run session command: %w", err)
	}
	return &sandbox.SessionCommand{
		CommandID: out.CmdID,
		StartedAt: time.Now(),
	}, nil
}

// CloseSession terminates a named session. A missing session is not an error.
func (c *Client) CloseSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	p := c.toolboxPath(sb.ID, "process/session", name)
	err := c.doJSON(ctx, http.MethodDelete, p, nil, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (c *Client) toolboxPath(id string, parts ...string) string {
	segments := append([]string{"/toolbox", url.PathEscape(id)}, parts...)
	return path.Join(segments...)
}

func toSandbox(p *sandboxPayload) *sandbox.Sandbox {
	return &sandbox.Sandbox{
		ID:        p.ID,
		State:     sandbox.State(p.State),
		CreatedAt: p.CreatedAt,
	}
}

// statusError carries the HTTP status of a failed API call so callers can
// distinguish not-found from transport failures.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("daytona api error: status=%d body=%s", e.Status, e.Body)
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == status
}

// doJSON sends a JSON request and decodes a JSON response (if out is non-nil).
func (c *Client) doJSON(ctx context.Context, method, p string, in any, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = path.Join(u.Path, p)

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return &statusError{Status: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
