package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appdock/appdock/internal/services"
	"github.com/valyala/fasthttp"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/migrations"
	"github.com/appdock/appdock/internal/pubsub"
)

// Server is the HTTP server exposing the build and lifecycle endpoints
type Server struct {
	srv      *fasthttp.Server
	addr     string
	services *services.Services
	pubsub   *pubsub.PubSub
}

// New creates the server, runs pending migrations and wires the services
func New() *Server {
	conf := config.ReadConfig()

	if conf.DB_HOST != "" {
		m, err := migrations.NewMigrator()
		if err != nil {
			panic("unable to create migrator")
		}

		err = m.Up(0)
		if err != nil {
			panic("unable to run migrations")
		}
	}

	s := &Server{
		srv:      &fasthttp.Server{},
		addr:     fmt.Sprintf("0.0.0.0:%s", conf.PORT),
		services: services.NewServices(conf),
	}

	if conf.DB_HOST != "" && s.services.Lifecycle != nil {
		s.pubsub = pubsub.NewPubSub(conf)
		s.pubsub.Subscribe(func(sandboxID string) {
			s.services.Lifecycle.Teardown(context.Background(), sandboxID)
		})
	}

	s.srv.Handler = s.initRoutes(conf)

	return s
}

// Start the rest server
func (s *Server) Start() {
	slog.Info("Starting REST server...")
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	if s.services.Reaper != nil {
		s.services.Reaper.Start()
	}

	if s.pubsub != nil {
		if err := s.pubsub.Start(); err != nil {
			slog.Error("Unable to start pubsub listener", slog.Any("error", err))
		}
	}

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	// Create a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

// shutdown stops the background workers and the rest server
func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")

	if s.pubsub != nil {
		s.pubsub.Stop()
	}

	if s.services.Reaper != nil {
		s.services.Reaper.Stop()
	}

	if err := s.srv.Shutdown(); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}
