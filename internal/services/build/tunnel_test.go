package build

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTunnelURLs(t *testing.T) {
	urls := BuildTunnelURLs("abc123")

	require.Equal(t, "exp://abc123.ngrok.io", urls.ExpoURL)
	require.Equal(t, "https://abc123.daytona.io", urls.PreviewURL)
	require.True(t, strings.HasPrefix(urls.QRCodeURL, "https://api.qrserver.com/v1/create-qr-code/"))
}

func TestBuildTunnelURLsQRRoundTrip(t *testing.T) {
	urls := BuildTunnelURLs("sb-42")

	parsed, err := url.Parse(urls.QRCodeURL)
	require.NoError(t, err)

	query := parsed.Query()
	require.Equal(t, "200x200", query.Get("size"))

	// Query decoding must reproduce the tunnel URL exactly
	require.Equal(t, urls.ExpoURL, query.Get("data"))
}

func TestBuildTunnelURLsContainSandboxID(t *testing.T) {
	for _, id := range []string{"a", "abc123", "f3d2c1b0a9887766"} {
		urls := BuildTunnelURLs(id)
		require.Contains(t, urls.ExpoURL, id)
		require.Contains(t, urls.PreviewURL, id)
	}
}
