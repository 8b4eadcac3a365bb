package services

import (
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/db"
	"github.com/appdock/appdock/internal/services/build"
	"github.com/appdock/appdock/internal/services/lifecycle"
	"github.com/appdock/appdock/internal/services/registry"
	"github.com/appdock/appdock/pkg/sandbox"
	"github.com/appdock/appdock/pkg/sandbox/daytona"
	"github.com/appdock/appdock/pkg/sandbox/kube"
)

// Services wires the sandbox backend, registry and domain services together.
// Sandbox, Build and Lifecycle are nil when no backend is configured; the
// transport layer reports that as a configuration error per request instead
// of refusing to start.
type Services struct {
	Sandbox   sandbox.Client
	Registry  *registry.Service
	Build     *build.Service
	BuildRepo *build.Repo
	Lifecycle *lifecycle.Service
	Reaper    *lifecycle.Reaper
}

func NewServices(conf *config.Config) *Services {
	var reg *registry.Service
	if conf.REDIS_ADDR != "" {
		r, err := registry.New(conf)
		if err != nil {
			slog.Warn("Failed to connect to redis, sandbox registry disabled", slog.Any("error", err))
		} else {
			reg = r
			slog.Info("Connected to redis for sandbox registry")
		}
	}

	var buildRepo *build.Repo
	if conf.DB_HOST != "" {
		buildRepo = build.NewRepo(db.NewConn(conf))
	}

	svc := &Services{
		Registry:  reg,
		BuildRepo: buildRepo,
	}

	client := newSandboxClient(conf)
	if client == nil {
		return svc
	}

	var readiness build.ReadinessChecker
	if conf.READINESS_POLL {
		readiness = build.NewHTTPReadinessChecker()
	}

	svc.Sandbox = client
	svc.Build = build.NewService(client, reg, buildRepo, build.Options{
		SettleDelay: time.Duration(conf.SETTLE_SECONDS) * time.Second,
		Readiness:   readiness,
	})
	svc.Lifecycle = lifecycle.NewService(client, reg)

	if reg != nil {
		svc.Reaper = lifecycle.NewReaper(
			svc.Lifecycle,
			reg,
			time.Duration(conf.SANDBOX_TTL_MINUTES)*time.Minute,
			time.Duration(conf.REAPER_INTERVAL_MINUTES)*time.Minute,
		)
	}

	return svc
}

func newSandboxClient(conf *config.Config) sandbox.Client {
	switch conf.SANDBOX_BACKEND {
	case "kube":
		client, err := kube.New(kube.Config{
			Namespace: conf.SANDBOX_NAMESPACE,
			Image:     conf.SANDBOX_IMAGE,
			Port:      conf.SANDBOX_PORT,
		})
		if err != nil {
			log.Fatalf("Failed to create kube sandbox client: %v", err)
		}

		slog.Info("Using kube sandbox backend", slog.String("namespace", conf.SANDBOX_NAMESPACE))
		return client
	default:
		client, err := daytona.New(daytona.Config{
			APIKey: conf.DAYTONA_API_KEY,
			APIURL: conf.DAYTONA_API_URL,
		})
		if err != nil {
			if errors.Is(err, daytona.ErrMissingAPIKey) {
				slog.Warn("Daytona API key not configured, builds will be rejected")
				return nil
			}
			log.Fatalf("Failed to create daytona sandbox client: %v", err)
		}

		slog.Info("Using daytona sandbox backend")
		return client
	}
}
