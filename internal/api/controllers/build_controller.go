package controllers

import (
	"fmt"
	"net/http"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/appdock/appdock/internal/perrors"
	"github.com/appdock/appdock/internal/services"
	"github.com/appdock/appdock/internal/services/build"
)

// errorBody is the raw error shape of the build endpoints. These endpoints
// predate the response envelope and keep their original wire contract.
type errorBody struct {
	Error string `json:"error"`
}

func RegisterBuildRoutes(r *router.Router, svc *services.Services) {
	// Provision an Expo app sandbox. The request is held open for the whole
	// provisioning run; a failed run still answers 200 with success=false.
	r.POST("/api/build-app", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req build.BuildRequest
		if err := parseBody(ctx, &req); err != nil {
			writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
			return
		}

		if req.Description == "" {
			writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: "Description is required"})
			return
		}

		if svc.Build == nil {
			writeRaw(ctx, stdCtx, http.StatusInternalServerError, errorBody{Error: "Daytona API key not configured"})
			return
		}

		result := svc.Build.Provision(stdCtx, &req)

		writeRaw(ctx, stdCtx, http.StatusOK, result)
	})

	registerToolRoutes(r, svc)

	// List recent provisioning runs from the audit table
	r.GET("/api/builds", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if svc.BuildRepo == nil {
			writeError(ctx, stdCtx, "Build history is not configured", perrors.NewErrConfiguration("Build history is not configured", nil))
			return
		}

		builds, err := svc.BuildRepo.List(stdCtx, 50)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list builds", perrors.NewErrInternalServerError("Failed to list builds", err))
			return
		}

		writeOK(ctx, stdCtx, "Builds retrieved successfully", builds)
	})
}

type toolRequest struct {
	Tool struct {
		Name string `json:"name"`
	} `json:"tool"`
	Arguments struct {
		AppName     string `json:"appName"`
		Description string `json:"description"`
		Platform    string `json:"platform"`
		SandboxID   string `json:"sandboxId"`
	} `json:"arguments"`
}

type toolResult struct {
	ToolName string `json:"toolName"`
	Result   any    `json:"result"`
}

type toolResponse struct {
	ToolResults []toolResult `json:"toolResults"`
}

type createAppResult struct {
	*build.BuildResult
	Message string `json:"message"`
}

// registerToolRoutes exposes the tool-invocation variant of the build
// endpoint, used by chat frontends that speak the tool-call protocol.
func registerToolRoutes(r *router.Router, svc *services.Services) {
	r.POST("/api/tools", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req toolRequest
		if err := parseBody(ctx, &req); err != nil {
			writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
			return
		}

		switch req.Tool.Name {
		case "createApp":
			if req.Arguments.AppName == "" {
				writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: "App name is required"})
				return
			}

			if req.Arguments.Description == "" {
				writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: "Description is required"})
				return
			}

			if svc.Build == nil {
				writeRaw(ctx, stdCtx, http.StatusInternalServerError, errorBody{Error: "Daytona API key not configured"})
				return
			}

			result := svc.Build.Provision(stdCtx, &build.BuildRequest{
				Description: req.Arguments.Description,
				AppName:     req.Arguments.AppName,
			})

			platform := req.Arguments.Platform
			if platform == "" {
				platform = "cross-platform"
			}

			writeRaw(ctx, stdCtx, http.StatusOK, toolResponse{
				ToolResults: []toolResult{{
					ToolName: req.Tool.Name,
					Result: createAppResult{
						BuildResult: result,
						Message:     fmt.Sprintf("App '%s' created successfully for %s", req.Arguments.AppName, platform),
					},
				}},
			})

		case "teardownSandbox":
			if req.Arguments.SandboxID == "" {
				writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: "Sandbox id is required"})
				return
			}

			if svc.Lifecycle == nil {
				writeRaw(ctx, stdCtx, http.StatusInternalServerError, errorBody{Error: "Daytona API key not configured"})
				return
			}

			svc.Lifecycle.Teardown(stdCtx, req.Arguments.SandboxID)

			writeRaw(ctx, stdCtx, http.StatusOK, toolResponse{
				ToolResults: []toolResult{{
					ToolName: req.Tool.Name,
					Result: map[string]any{
						"success": true,
						"message": fmt.Sprintf("Sandbox %s teardown completed", req.Arguments.SandboxID),
					},
				}},
			})

		default:
			writeRaw(ctx, stdCtx, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("Unknown tool: %s", req.Tool.Name)})
		}
	})
}
