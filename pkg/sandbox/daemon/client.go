package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Client talks to a sandbox daemon running inside a sandbox pod.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the daemon at the given host and port.
func NewClient(host string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Exec runs a shell command inside the sandbox and blocks until it completes.
func (c *Client) Exec(ctx context.Context, in *ExecRequest) (*ExecResponse, error) {
	var res ExecResponse
	if err := c.doJSON(ctx, http.MethodPost, "/exec", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// OpenSession creates a named session inside the sandbox.
func (c *Client) OpenSession(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions", openSessionRequest{Name: name}, nil)
}

// StartSessionCommand starts a command in a named session without waiting
// for it to complete.
func (c *Client) StartSessionCommand(ctx context.Context, session, command string) (*sessionCommandResponse, error) {
	var res sessionCommandResponse
	p := path.Join("/sessions", url.PathEscape(session), "commands")
	if err := c.doJSON(ctx, http.MethodPost, p, sessionCommandRequest{Command: command}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CloseSession terminates a named session and its processes.
func (c *Client) CloseSession(ctx context.Context, session string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(session), nil, nil)
}

// Health reports whether the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon unhealthy: status=%d", resp.StatusCode)
	}
	return nil
}

// ReadFile reads a file from the sandbox workspace.
func (c *Client) ReadFile(ctx context.Context, filePath string) (*fileContent, error) {
	var out fileContent
	if err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(filePath), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WriteFile writes content to a file in the sandbox workspace.
func (c *Client) WriteFile(ctx context.Context, filePath, content string) (*fileContent, error) {
	in := fileContent{Path: filePath, Content: content}
	var out fileContent
	if err := c.doJSON(ctx, http.MethodPost, "/files/"+url.PathEscape(filePath), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
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
		return fmt.Errorf("daemon error: status=%d body=%s", resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
