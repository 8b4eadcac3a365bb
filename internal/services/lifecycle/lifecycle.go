package lifecycle

import (
	"context"
	"log/slog"

	"github.com/appdock/appdock/internal/services/build"
	"github.com/appdock/appdock/internal/services/registry"
	"github.com/appdock/appdock/pkg/sandbox"
)

// Service tears down sandboxes. Teardown is idempotent: a sandbox that is
// already gone is treated as success.
type Service struct {
	client   sandbox.Client
	registry *registry.Service
}

func NewService(client sandbox.Client, reg *registry.Service) *Service {
	return &Service{client: client, registry: reg}
}

// Teardown closes the tunnel session and deletes the sandbox. Session close
// failures are logged and ignored since deleting the sandbox kills its
// processes anyway. The registry entry is only dropped once the sandbox is
// confirmed gone, so a failed delete stays visible to the reaper.
func (s *Service) Teardown(ctx context.Context, sandboxID string) {
	sb, err := s.client.Get(ctx, sandboxID)
	if err != nil {
		if sandbox.IsNotFound(err) {
			slog.InfoContext(ctx, "Sandbox already gone", slog.String("sandbox_id", sandboxID))
			s.forget(ctx, sandboxID)
			return
		}

		slog.ErrorContext(ctx, "Unable to look up sandbox for teardown",
			slog.String("sandbox_id", sandboxID),
			slog.Any("error", err),
		)
		return
	}

	if err := s.client.CloseSession(ctx, sb, build.TunnelSessionName); err != nil {
		slog.WarnContext(ctx, "Unable to close tunnel session",
			slog.String("sandbox_id", sandboxID),
			slog.Any("error", err),
		)
	}

	if err := s.client.Delete(ctx, sb); err != nil && !sandbox.IsNotFound(err) {
		slog.ErrorContext(ctx, "Unable to delete sandbox",
			slog.String("sandbox_id", sandboxID),
			slog.Any("error", err),
		)
		return
	}

	slog.InfoContext(ctx, "Sandbox deleted", slog.String("sandbox_id", sandboxID))
	s.forget(ctx, sandboxID)
}

func (s *Service) forget(ctx context.Context, sandboxID string) {
	if s.registry == nil {
		return
	}

	if err := s.registry.Remove(ctx, sandboxID); err != nil {
		slog.ErrorContext(ctx, "Unable to remove sandbox record",
			slog.String("sandbox_id", sandboxID),
			slog.Any("error", err),
		)
	}
}
