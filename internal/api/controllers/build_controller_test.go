package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/fasthttp/router"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/appdock/appdock/internal/services"
	"github.com/appdock/appdock/internal/services/build"
	"github.com/appdock/appdock/pkg/sandbox"
)

// stubClient satisfies sandbox.Client with canned responses so handler tests
// can exercise the full provisioning path in process.
type stubClient struct {
	created int
}

func (s *stubClient) Create(ctx context.Context, language string) (*sandbox.Sandbox, error) {
	s.created++
	return &sandbox.Sandbox{ID: "abc123", State: sandbox.StateReady, CreatedAt: time.Now()}, nil
}

func (s *stubClient) Get(ctx context.Context, id string) (*sandbox.Sandbox, error) {
	return &sandbox.Sandbox{ID: id}, nil
}

func (s *stubClient) Delete(ctx context.Context, sb *sandbox.Sandbox) error { return nil }

func (s *stubClient) RunCommand(ctx context.Context, sb *sandbox.Sandbox, command string) (*sandbox.CommandResult, error) {
	return &sandbox.CommandResult{ExitCode: 0}, nil
}

func (s *stubClient) OpenSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	return nil
}

func (s *stubClient) RunSessionCommand(ctx context.Context, sb *sandbox.Sandbox, session string, command string) (*sandbox.SessionCommand, error) {
	return &sandbox.SessionCommand{CommandID: "cmd-1", StartedAt: time.Now()}, nil
}

func (s *stubClient) CloseSession(ctx context.Context, sb *sandbox.Sandbox, name string) error {
	return nil
}

type readyNow struct{}

func (readyNow) Check(ctx context.Context, url string) error { return nil }

func serveBuild(svc *services.Services, method, uri, body string) *fasthttp.RequestCtx {
	r := router.New()
	RegisterBuildRoutes(r, svc)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}

	r.Handler(ctx)
	return ctx
}

func TestBuildAppMissingDescription(t *testing.T) {
	client := &stubClient{}
	svc := &services.Services{
		Sandbox: client,
		Build:   build.NewService(client, nil, nil, build.Options{Readiness: readyNow{}}),
	}

	ctx := serveBuild(svc, http.MethodPost, "/api/build-app", `{"description":""}`)

	require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	require.Contains(t, string(ctx.Response.Body()), "Description is required")
	require.Zero(t, client.created)
}

func TestBuildAppMissingConfiguration(t *testing.T) {
	svc := &services.Services{}

	ctx := serveBuild(svc, http.MethodPost, "/api/build-app", `{"description":"a todo app"}`)

	require.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	require.Contains(t, string(ctx.Response.Body()), "Daytona API key not configured")
}

func TestBuildAppSuccess(t *testing.T) {
	client := &stubClient{}
	svc := &services.Services{
		Sandbox: client,
		Build: build.NewService(client, nil, nil, build.Options{
			SettleDelay: time.Millisecond,
			Readiness:   readyNow{},
		}),
	}

	ctx := serveBuild(svc, http.MethodPost, "/api/build-app", `{"description":"Build a calorie tracker"}`)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	var result build.BuildResult
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &result))
	require.True(t, result.Success)
	require.Equal(t, "abc123", result.SandboxID)
	require.Equal(t, "exp://abc123.ngrok.io", result.ExpoURL)
}

func TestToolsUnknownTool(t *testing.T) {
	svc := &services.Services{}

	ctx := serveBuild(svc, http.MethodPost, "/api/tools", `{"tool":{"name":"paintHouse"},"arguments":{}}`)

	require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	require.Contains(t, string(ctx.Response.Body()), "Unknown tool: paintHouse")
}

func TestToolsCreateAppMissingAppName(t *testing.T) {
	client := &stubClient{}
	svc := &services.Services{
		Sandbox: client,
		Build:   build.NewService(client, nil, nil, build.Options{Readiness: readyNow{}}),
	}

	ctx := serveBuild(svc, http.MethodPost, "/api/tools", `{"tool":{"name":"createApp"},"arguments":{"description":"a workout app"}}`)

	require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	require.Contains(t, string(ctx.Response.Body()), "App name is required")
	require.Zero(t, client.created)
}

func TestToolsCreateApp(t *testing.T) {
	client := &stubClient{}
	svc := &services.Services{
		Sandbox: client,
		Build: build.NewService(client, nil, nil, build.Options{
			SettleDelay: time.Millisecond,
			Readiness:   readyNow{},
		}),
	}

	body := `{"tool":{"name":"createApp"},"arguments":{"appName":"Fitness Pal","description":"a workout app","platform":"ios"}}`
	ctx := serveBuild(svc, http.MethodPost, "/api/tools", body)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		ToolResults []struct {
			ToolName string `json:"toolName"`
			Result   struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			} `json:"result"`
		} `json:"toolResults"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	require.Len(t, resp.ToolResults, 1)
	require.Equal(t, "createApp", resp.ToolResults[0].ToolName)
	require.True(t, resp.ToolResults[0].Result.Success)
	require.Equal(t, "App 'Fitness Pal' created successfully for ios", resp.ToolResults[0].Result.Message)
}
