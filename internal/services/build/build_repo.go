package build

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrBuildNotFound = errors.New("build not found")

// Repo handles database operations for the builds audit table
type Repo struct {
	db *sqlx.DB
}

// NewRepo creates a new build repository
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// Insert records one provisioning run, successful or not
func (r *Repo) Insert(ctx context.Context, b *Build) error {
	query := `
        INSERT INTO builds (id, project_id, sandbox_id, app_name, slug, success, error,
            preview_url, qr_code_url, expo_url, tunnel_command_id, created_at)
        VALUES (:id, :project_id, :sandbox_id, :app_name, :slug, :success, :error,
            :preview_url, :qr_code_url, :expo_url, :tunnel_command_id, :created_at)
    `

	_, err := r.db.NamedExecContext(ctx, query, b)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	return nil
}

// GetByID retrieves a build by ID
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Build, error) {
	query := `
        SELECT id, project_id, sandbox_id, app_name, slug, success, error,
            preview_url, qr_code_url, expo_url, tunnel_command_id, created_at
        FROM builds
        WHERE id = $1
    `

	var b Build
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBuildNotFound
		}
		return nil, fmt.Errorf("failed to get build: %w", err)
	}

	return &b, nil
}

// List retrieves recent builds, newest first
func (r *Repo) List(ctx context.Context, limit int) ([]*Build, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT id, project_id, sandbox_id, app_name, slug, success, error,
            preview_url, qr_code_url, expo_url, tunnel_command_id, created_at
        FROM builds
        ORDER BY created_at DESC
        LIMIT $1
    `

	builds := []*Build{}
	err := r.db.SelectContext(ctx, &builds, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}

	return builds, nil
}
