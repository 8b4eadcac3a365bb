package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/appdock/appdock/internal/services/registry"
)

// Reaper periodically tears down sandboxes that outlived their TTL. It is
// the backstop for abandoned builds and for teardowns that failed earlier.
type Reaper struct {
	lifecycle *Service
	registry  *registry.Service
	ttl       time.Duration
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReaper(lc *Service, reg *registry.Service, ttl, interval time.Duration) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())

	return &Reaper{
		lifecycle: lc,
		registry:  reg,
		ttl:       ttl,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start sweeps once immediately, then on every tick until Stop is called.
func (r *Reaper) Start() {
	go func() {
		defer close(r.done)

		slog.Info("Sandbox reaper started",
			slog.Duration("ttl", r.ttl),
			slog.Duration("interval", r.interval),
		)

		r.sweep(r.ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep(r.ctx)
			case <-r.ctx.Done():
				return
			}
		}
	}()
}

func (r *Reaper) Stop() {
	r.cancel()
	<-r.done
	slog.Info("Sandbox reaper stopped")
}

func (r *Reaper) sweep(ctx context.Context) {
	records, err := r.registry.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Reaper unable to list sandboxes", slog.Any("error", err))
		return
	}

	cutoff := time.Now().Add(-r.ttl)

	for _, rec := range records {
		if rec.CreatedAt.After(cutoff) {
			continue
		}

		slog.InfoContext(ctx, "Reaping expired sandbox",
			slog.String("sandbox_id", rec.SandboxID),
			slog.Time("created_at", rec.CreatedAt),
		)
		r.lifecycle.Teardown(ctx, rec.SandboxID)
	}
}
