package build

import (
	"time"

	"github.com/google/uuid"
)

// BuildRequest captures the payload for provisioning a new app build.
type BuildRequest struct {
	Description string `json:"description" validate:"required,min=1"`
	AppName     string `json:"appName,omitempty"`
}

// BuildResult is the outcome of one provisioning run. Success implies the
// sandbox id and all three URLs are set; failure implies only Error is set.
type BuildResult struct {
	Success         bool     `json:"success"`
	SandboxID       string   `json:"sandboxId,omitempty"`
	ProjectID       string   `json:"projectId,omitempty"`
	PreviewURL      string   `json:"previewUrl,omitempty"`
	QRCodeURL       string   `json:"qrCodeUrl,omitempty"`
	ExpoURL         string   `json:"expoUrl,omitempty"`
	TunnelCommandID string   `json:"tunnelCommandId,omitempty"`
	Error           string   `json:"error,omitempty"`
	Logs            []string `json:"logs,omitempty"`
}

// AppName is the classified name for a described app.
type AppName struct {
	DisplayName string `json:"displayName"`
	Slug        string `json:"slug"`
}

// Build is the persisted audit record of one provisioning run.
type Build struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ProjectID       string    `json:"project_id" db:"project_id"`
	SandboxID       string    `json:"sandbox_id" db:"sandbox_id"`
	AppName         string    `json:"app_name" db:"app_name"`
	Slug            string    `json:"slug" db:"slug"`
	Success         bool      `json:"success" db:"success"`
	Error           string    `json:"error" db:"error"`
	PreviewURL      string    `json:"preview_url" db:"preview_url"`
	QRCodeURL       string    `json:"qr_code_url" db:"qr_code_url"`
	ExpoURL         string    `json:"expo_url" db:"expo_url"`
	TunnelCommandID string    `json:"tunnel_command_id" db:"tunnel_command_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
