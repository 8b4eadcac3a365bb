package build

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appdock/appdock/pkg/sandbox"
	"github.com/stretchr/testify/require"
)

// fakeClient records every call in order and can be told to fail a
// specific bootstrap command.
type fakeClient struct {
	calls []string

	sandboxID   string
	createErr   error
	failCommand string
	failOutput  string
}

func (f *fakeClient) Create(ctx context.Context, language string) (*sandbox.Sandbox, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &sandbox.Sandbox{ID: f.sandboxID, State: sandbox.StateReady, CreatedAt: time.Now()}, nil
}

func (f *fakeClient) Get(ctx context.Context, id string) (*sandbox.Sandbox, error) {
	f.calls = append(f.calls, "get")
	return &sandbox.Sandbox{ID: id}, nil
}

func (f *fakeClient) Delete(ctx context.Context, sb *sandbox.Sandbox) error {
	f.calls = append(f.calls, "delete")
	return nil
}

func (f *fakeClient) RunCommand(ctx context.Context, sb *sandbox.Sandbox, command string) (*sandbox.CommandResult, error) {
	f.calls = append(f.calls, "run:"+command)
	if f.failCommand != "" && command == f.failCommand {
		return &sandbox.CommandResult{ExitCode: 1, Output: f.failOutput}, nil
	}
	return &sandbox.CommandResult{ExitCode: 0, Output: ""}, nil
}

func (f *fakeClient) OpenSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	f.calls = append(f.calls, "open-session:"+name)
	return nil
}

func (f *fakeClient) RunSessionCommand(ctx context.Context, sb *sandbox.Sandbox, session string, command string) (*sandbox.SessionCommand, error) {
	f.calls = append(f.calls, "session-run:"+session)
	return &sandbox.SessionCommand{CommandID: "cmd-1", StartedAt: time.Now()}, nil
}

func (f *fakeClient) CloseSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	f.calls = append(f.calls, "close-session:"+name)
	return nil
}

// instantReadiness reports the tunnel ready on the first probe, so tests
// never sit in the settle delay.
type instantReadiness struct{}

func (instantReadiness) Check(ctx context.Context, url string) error { return nil }

func newTestService(client *fakeClient) *Service {
	return NewService(client, nil, nil, Options{
		SettleDelay: time.Millisecond,
		Readiness:   instantReadiness{},
	})
}

func TestProvisionSuccess(t *testing.T) {
	client := &fakeClient{sandboxID: "abc123"}
	svc := newTestService(client)

	result := svc.Provision(context.Background(), &BuildRequest{Description: "Build a calorie tracker"})

	require.True(t, result.Success)
	require.Equal(t, "abc123", result.SandboxID)
	require.Equal(t, "exp://abc123.ngrok.io", result.ExpoURL)
	require.Equal(t, "https://abc123.daytona.io", result.PreviewURL)
	require.NotEmpty(t, result.QRCodeURL)
	require.Equal(t, "cmd-1", result.TunnelCommandID)
	require.Empty(t, result.Error)

	require.Equal(t, []string{
		"Created sandbox: abc123",
		"Created Expo project",
		"Expo tunnel: exp://abc123.ngrok.io",
		"Preview: https://abc123.daytona.io",
	}, result.Logs)
}

func TestProvisionCallOrder(t *testing.T) {
	client := &fakeClient{sandboxID: "abc123"}
	svc := newTestService(client)

	svc.Provision(context.Background(), &BuildRequest{Description: "a recipe book"})

	require.Equal(t, []string{
		"create",
		"run:npm install -g @expo/cli @expo/ngrok create-expo-app",
		"run:npx create-expo-app@latest recipe-book --template blank-typescript --yes",
		"run:cd recipe-book && npm install",
		"open-session:expo-tunnel",
		"session-run:expo-tunnel",
	}, client.calls)
}

func TestProvisionAllocationFailure(t *testing.T) {
	client := &fakeClient{createErr: errors.New("quota exceeded")}
	svc := newTestService(client)

	result := svc.Provision(context.Background(), &BuildRequest{Description: "anything"})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "quota exceeded")
	require.Empty(t, result.SandboxID)
	require.Empty(t, result.ExpoURL)
	require.Empty(t, result.PreviewURL)
	require.Empty(t, result.QRCodeURL)
	require.Empty(t, result.Logs)
	require.Equal(t, []string{"create"}, client.calls)
}

func TestProvisionBootstrapFailure(t *testing.T) {
	client := &fakeClient{
		sandboxID:   "abc123",
		failCommand: "npx create-expo-app@latest my-app --template blank-typescript --yes",
		failOutput:  "npm ERR! network timeout",
	}
	svc := newTestService(client)

	result := svc.Provision(context.Background(), &BuildRequest{Description: "something unnamed"})

	require.False(t, result.Success)
	require.Equal(t, "npm ERR! network timeout", result.Error)
	require.Empty(t, result.ExpoURL)
	require.Empty(t, result.PreviewURL)
	require.Empty(t, result.QRCodeURL)

	// No tunnel or teardown calls after the failed command
	require.Equal(t, []string{
		"create",
		"run:npm install -g @expo/cli @expo/ngrok create-expo-app",
		"run:npx create-expo-app@latest my-app --template blank-typescript --yes",
	}, client.calls)
}

func TestProvisionResultInvariant(t *testing.T) {
	success := (&fakeClient{sandboxID: "sb1"})
	failure := (&fakeClient{createErr: errors.New("boom")})

	for _, client := range []*fakeClient{success, failure} {
		result := newTestService(client).Provision(context.Background(), &BuildRequest{Description: "x"})

		allSet := result.SandboxID != "" && result.PreviewURL != "" && result.QRCodeURL != "" && result.ExpoURL != ""
		if result.Success {
			require.True(t, allSet)
			require.Empty(t, result.Error)
		} else {
			require.False(t, allSet)
			require.NotEmpty(t, result.Error)
		}
	}
}
