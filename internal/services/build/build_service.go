package build

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/appdock/appdock/internal/services/registry"
	"github.com/appdock/appdock/pkg/sandbox"
	"github.com/google/uuid"
)

// TunnelSessionName is the long-lived session the Expo dev server runs in.
// Teardown closes the session by this name before deleting the sandbox.
const TunnelSessionName = "expo-tunnel"

const (
	maxReadinessAttempts = 10
	readinessInterval    = 2 * time.Second
)

// ReadinessChecker probes whether the tunnel answers at a URL. A nil checker
// makes the workflow fall back to a fixed settle delay.
type ReadinessChecker interface {
	Check(ctx context.Context, url string) error
}

// HTTPReadinessChecker probes the preview URL with a HEAD request. Any HTTP
// response counts as reachable; only transport errors do not.
type HTTPReadinessChecker struct {
	client *http.Client
}

func NewHTTPReadinessChecker() *HTTPReadinessChecker {
	return &HTTPReadinessChecker{client: &http.Client{Timeout: 5 * time.Second}}
}

func (c *HTTPReadinessChecker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	return nil
}

// Options tune the settling phase of the workflow.
type Options struct {
	SettleDelay time.Duration
	Readiness   ReadinessChecker
}

// Service provisions Expo app sandboxes. The registry and repo are optional;
// when nil the workflow still completes, it just isn't recorded.
type Service struct {
	client   sandbox.Client
	registry *registry.Service
	repo     *Repo
	opts     Options
}

func NewService(client sandbox.Client, reg *registry.Service, repo *Repo, opts Options) *Service {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = 15 * time.Second
	}

	return &Service{
		client:   client,
		registry: reg,
		repo:     repo,
		opts:     opts,
	}
}

type bootstrapStep struct {
	name    string
	command string
}

func bootstrapSteps(slug string) []bootstrapStep {
	return []bootstrapStep{
		{"install tooling", "npm install -g @expo/cli @expo/ngrok create-expo-app"},
		{"scaffold project", "npx create-expo-app@latest " + slug + " --template blank-typescript --yes"},
		{"install dependencies", "cd " + slug + " && npm install"},
	}
}

func tunnelCommand(slug, sandboxID string) string {
	return "cd " + slug + " && EXPO_TUNNEL_SUBDOMAIN=" + sandboxID + " npx expo start --tunnel"
}

// Provision runs the full build workflow: allocate a sandbox, scaffold the
// Expo project, start the tunnel in a named session and assemble the result.
// It never returns an error; failures are reported inside the result so the
// transport layer can serialize them uniformly.
func (s *Service) Provision(ctx context.Context, req *BuildRequest) *BuildResult {
	logs := make([]string, 0, 4)

	sb, err := s.client.Create(ctx, sandbox.LanguageTypeScript)
	if err != nil {
		return s.fail(ctx, req, nil, &AllocationError{Err: err})
	}
	if sb == nil || sb.ID == "" {
		return s.fail(ctx, req, nil, &AllocationError{Err: errors.New("provisioner returned an empty sandbox id")})
	}

	slog.InfoContext(ctx, "Created sandbox", slog.String("sandbox_id", sb.ID))
	logs = append(logs, "Created sandbox: "+sb.ID)

	name := ClassifyName(req.Description)

	for _, step := range bootstrapSteps(name.Slug) {
		res, err := s.client.RunCommand(ctx, sb, step.command)
		if err != nil {
			return s.fail(ctx, req, sb, &BootstrapError{Step: step.name, Err: err})
		}
		if res.ExitCode != 0 {
			return s.fail(ctx, req, sb, &BootstrapError{Step: step.name, Output: res.Output})
		}
	}
	logs = append(logs, "Created Expo project")

	if err := s.client.OpenSession(ctx, sb, TunnelSessionName); err != nil {
		return s.fail(ctx, req, sb, &BootstrapError{Step: "open tunnel session", Err: err})
	}

	cmd, err := s.client.RunSessionCommand(ctx, sb, TunnelSessionName, tunnelCommand(name.Slug, sb.ID))
	if err != nil {
		return s.fail(ctx, req, sb, &BootstrapError{Step: "start expo tunnel", Err: err})
	}

	slog.InfoContext(ctx, "Expo tunnel starting",
		slog.String("sandbox_id", sb.ID),
		slog.String("command_id", cmd.CommandID),
	)

	urls := BuildTunnelURLs(sb.ID)

	s.settle(ctx, urls.PreviewURL)

	logs = append(logs, "Expo tunnel: "+urls.ExpoURL, "Preview: "+urls.PreviewURL)

	result := &BuildResult{
		Success:         true,
		SandboxID:       sb.ID,
		ProjectID:       uuid.NewString(),
		PreviewURL:      urls.PreviewURL,
		QRCodeURL:       urls.QRCodeURL,
		ExpoURL:         urls.ExpoURL,
		TunnelCommandID: cmd.CommandID,
		Logs:            logs,
	}

	s.record(ctx, req, name, result)

	return result
}

// settle waits for the tunnel to come up. With a readiness checker it polls
// a bounded number of times and proceeds regardless of the outcome, since
// the tunnel can still finish connecting after we respond. Without one it
// falls back to a fixed delay.
func (s *Service) settle(ctx context.Context, previewURL string) {
	if s.opts.Readiness == nil {
		select {
		case <-time.After(s.opts.SettleDelay):
		case <-ctx.Done():
		}
		return
	}

	for attempt := 0; attempt < maxReadinessAttempts; attempt++ {
		if err := s.opts.Readiness.Check(ctx, previewURL); err == nil {
			return
		}

		select {
		case <-time.After(readinessInterval):
		case <-ctx.Done():
			return
		}
	}

	slog.WarnContext(ctx, "Tunnel did not report ready in time, continuing", slog.String("preview_url", previewURL))
}

func (s *Service) fail(ctx context.Context, req *BuildRequest, sb *sandbox.Sandbox, cause error) *BuildResult {
	sandboxID := ""
	if sb != nil {
		sandboxID = sb.ID
	}

	slog.ErrorContext(ctx, "Build failed",
		slog.String("sandbox_id", sandboxID),
		slog.Any("error", cause),
	)

	result := &BuildResult{
		Success: false,
		Error:   cause.Error(),
	}

	if s.repo != nil {
		name := ClassifyName(req.Description)
		if err := s.repo.Insert(ctx, &Build{
			ID:        uuid.New(),
			SandboxID: sandboxID,
			AppName:   name.DisplayName,
			Slug:      name.Slug,
			Success:   false,
			Error:     result.Error,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			slog.ErrorContext(ctx, "Unable to record failed build", slog.Any("error", err))
		}
	}

	return result
}

// record persists the successful run to the registry and the audit table.
// Both are best effort; a bookkeeping failure never fails a finished build.
func (s *Service) record(ctx context.Context, req *BuildRequest, name AppName, result *BuildResult) {
	now := time.Now().UTC()

	if s.registry != nil {
		err := s.registry.Record(ctx, &registry.Record{
			SandboxID:       result.SandboxID,
			ProjectID:       result.ProjectID,
			Slug:            name.Slug,
			DisplayName:     name.DisplayName,
			TunnelCommandID: result.TunnelCommandID,
			CreatedAt:       now,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Unable to register sandbox", slog.Any("error", err))
		}
	}

	if s.repo != nil {
		err := s.repo.Insert(ctx, &Build{
			ID:              uuid.New(),
			ProjectID:       result.ProjectID,
			SandboxID:       result.SandboxID,
			AppName:         name.DisplayName,
			Slug:            name.Slug,
			Success:         true,
			PreviewURL:      result.PreviewURL,
			QRCodeURL:       result.QRCodeURL,
			ExpoURL:         result.ExpoURL,
			TunnelCommandID: result.TunnelCommandID,
			CreatedAt:       now,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Unable to record build", slog.Any("error", err))
		}
	}
}
