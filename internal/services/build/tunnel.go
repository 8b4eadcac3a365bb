package build

import (
	"fmt"
	"net/url"
)

const (
	tunnelDomain  = "ngrok.io"
	previewDomain = "daytona.io"
	qrEndpoint    = "https://api.qrserver.com/v1/create-qr-code/"
	qrSize        = "200x200"
)

// TunnelURLs are the public addresses derived from a sandbox id. The tunnel
// subdomain is pinned to the sandbox id when the dev server starts, so all
// three URLs are reconstructable without parsing process output.
type TunnelURLs struct {
	ExpoURL    string `json:"expoUrl"`
	QRCodeURL  string `json:"qrCodeUrl"`
	PreviewURL string `json:"previewUrl"`
}

// BuildTunnelURLs computes the Expo tunnel URL, a scannable QR image URL and
// the web preview URL for a sandbox. Pure string construction; the embedded
// URL is percent-encoded when composed into the QR image query.
func BuildTunnelURLs(sandboxID string) TunnelURLs {
	expoURL := fmt.Sprintf("exp://%s.%s", sandboxID, tunnelDomain)

	return TunnelURLs{
		ExpoURL:    expoURL,
		QRCodeURL:  fmt.Sprintf("%s?size=%s&data=%s", qrEndpoint, qrSize, url.QueryEscape(expoURL)),
		PreviewURL: fmt.Sprintf("https://%s.%s", sandboxID, previewDomain),
	}
}
