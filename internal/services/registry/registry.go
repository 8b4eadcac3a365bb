package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appdock/appdock/internal/config"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

var ErrRecordNotFound = errors.New("sandbox record not found")

const (
	keyPrefix = "appdock:sandbox:"
	indexKey  = "appdock:sandboxes"
)

// Record is the registry entry for one live sandbox.
type Record struct {
	SandboxID       string    `json:"sandbox_id"`
	ProjectID       string    `json:"project_id"`
	Slug            string    `json:"slug"`
	DisplayName     string    `json:"display_name"`
	TunnelCommandID string    `json:"tunnel_command_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Service tracks live sandboxes in Redis so the reaper and the teardown
// endpoint can find them after a restart.
type Service struct {
	client *redis.Client
}

func New(conf *config.Config) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.REDIS_ADDR,
		Password: conf.REDIS_PASSWORD,
		DB:       conf.REDIS_DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Service{client: client}, nil
}

func (s *Service) Record(ctx context.Context, rec *Record) error {
	payload, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal sandbox record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+rec.SandboxID, payload, 0)
	pipe.SAdd(ctx, indexKey, rec.SandboxID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record sandbox %s: %w", rec.SandboxID, err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, sandboxID string) (*Record, error) {
	payload, err := s.client.Get(ctx, keyPrefix+sandboxID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get sandbox record: %w", err)
	}

	var rec Record
	if err := sonic.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sandbox record: %w", err)
	}

	return &rec, nil
}

// List returns every registered sandbox. Index members whose record expired
// or was deleted out of band are dropped from the index as they are found.
func (s *Service) List(ctx context.Context) ([]*Record, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sandboxes: %w", err)
	}

	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				s.client.SRem(ctx, indexKey, id)
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func (s *Service) Remove(ctx context.Context, sandboxID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+sandboxID)
	pipe.SRem(ctx, indexKey, sandboxID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove sandbox %s: %w", sandboxID, err)
	}

	return nil
}

func (s *Service) Close() error {
	return s.client.Close()
}
