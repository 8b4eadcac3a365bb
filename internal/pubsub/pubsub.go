package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/db"
	"github.com/lib/pq"
)

const teardownChannel = "sandbox_teardowns"

// TeardownHandler is a callback invoked with the sandbox id to tear down
type TeardownHandler func(sandboxID string)

// PubSub handles PostgreSQL LISTEN/NOTIFY for sandbox teardown requests.
// Any process with database access can request a teardown with
// NOTIFY sandbox_teardowns, '<sandbox_id>' and the server running the
// listener picks it up.
type PubSub struct {
	connStr  string
	listener *pq.Listener
	handlers []TeardownHandler
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPubSub creates a new PubSub instance
func NewPubSub(conf *config.Config) *PubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  db.ConnString(conf),
		handlers: make([]TeardownHandler, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a handler for teardown notifications
func (ps *PubSub) Subscribe(handler TeardownHandler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Start begins listening for notifications
func (ps *PubSub) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("PubSub listener error", slog.Any("error", err))
		}
		if ev == pq.ListenerEventConnectionAttemptFailed {
			slog.Warn("PubSub connection attempt failed, will retry")
		}
		if ev == pq.ListenerEventDisconnected {
			slog.Warn("PubSub disconnected, will attempt reconnect")
		}
		if ev == pq.ListenerEventReconnected {
			// Notifications sent while disconnected are lost; the reaper
			// sweep covers any teardown we missed.
			slog.Info("PubSub reconnected")
		}
	}

	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := ps.listener.Listen(teardownChannel); err != nil {
		return fmt.Errorf("failed to listen on %s channel: %w", teardownChannel, err)
	}

	slog.Info("PubSub started listening for teardown requests")

	go ps.processNotifications()

	return nil
}

// Stop closes the listener
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
	slog.Info("PubSub stopped")
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case notification := <-ps.listener.Notify:
			if notification == nil {
				// Connection lost, will be handled by reportProblem callback
				continue
			}

			sandboxID := notification.Extra
			if sandboxID == "" {
				slog.Warn("Teardown notification without a sandbox id")
				continue
			}

			slog.Debug("Received teardown notification", slog.String("sandbox_id", sandboxID))

			ps.notifyHandlers(sandboxID)
		}
	}
}

func (ps *PubSub) notifyHandlers(sandboxID string) {
	ps.mu.RLock()
	handlers := make([]TeardownHandler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	for _, handler := range handlers {
		// Run handlers in goroutines to avoid blocking the notification loop
		go handler(sandboxID)
	}
}
