package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appdock/appdock/pkg/sandbox"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls []string

	existing        map[string]bool
	closeSessionErr error
	deleteErr       error
}

func (f *fakeClient) Create(ctx context.Context, language string) (*sandbox.Sandbox, error) {
	f.calls = append(f.calls, "create")
	return &sandbox.Sandbox{ID: "new"}, nil
}

func (f *fakeClient) Get(ctx context.Context, id string) (*sandbox.Sandbox, error) {
	f.calls = append(f.calls, "get:"+id)
	if !f.existing[id] {
		return nil, &sandbox.NotFoundError{ID: id}
	}
	return &sandbox.Sandbox{ID: id, State: sandbox.StateRunning, CreatedAt: time.Now()}, nil
}

func (f *fakeClient) Delete(ctx context.Context, sb *sandbox.Sandbox) error {
	f.calls = append(f.calls, "delete:"+sb.ID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.existing, sb.ID)
	return nil
}

func (f *fakeClient) RunCommand(ctx context.Context, sb *sandbox.Sandbox, command string) (*sandbox.CommandResult, error) {
	f.calls = append(f.calls, "run")
	return &sandbox.CommandResult{}, nil
}

func (f *fakeClient) OpenSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	f.calls = append(f.calls, "open-session")
	return nil
}

func (f *fakeClient) RunSessionCommand(ctx context.Context, sb *sandbox.Sandbox, session string, command string) (*sandbox.SessionCommand, error) {
	f.calls = append(f.calls, "session-run")
	return &sandbox.SessionCommand{CommandID: "c1"}, nil
}

func (f *fakeClient) CloseSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	f.calls = append(f.calls, "close-session:"+name)
	return f.closeSessionErr
}

func TestTeardown(t *testing.T) {
	client := &fakeClient{existing: map[string]bool{"sb1": true}}
	svc := NewService(client, nil)

	svc.Teardown(context.Background(), "sb1")

	require.Equal(t, []string{
		"get:sb1",
		"close-session:expo-tunnel",
		"delete:sb1",
	}, client.calls)
}

func TestTeardownIsIdempotent(t *testing.T) {
	client := &fakeClient{existing: map[string]bool{"sb1": true}}
	svc := NewService(client, nil)

	svc.Teardown(context.Background(), "sb1")
	client.calls = nil

	// Second teardown finds nothing and stops after the lookup
	svc.Teardown(context.Background(), "sb1")
	require.Equal(t, []string{"get:sb1"}, client.calls)
}

func TestTeardownUnknownSandbox(t *testing.T) {
	client := &fakeClient{existing: map[string]bool{}}
	svc := NewService(client, nil)

	svc.Teardown(context.Background(), "ghost")

	require.Equal(t, []string{"get:ghost"}, client.calls)
}

func TestTeardownSessionCloseFailureStillDeletes(t *testing.T) {
	client := &fakeClient{
		existing:        map[string]bool{"sb1": true},
		closeSessionErr: errors.New("session stuck"),
	}
	svc := NewService(client, nil)

	svc.Teardown(context.Background(), "sb1")

	require.Equal(t, []string{
		"get:sb1",
		"close-session:expo-tunnel",
		"delete:sb1",
	}, client.calls)
}
