package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/appdock/appdock/internal/perrors"
	"github.com/appdock/appdock/internal/services"
)

func RegisterSandboxRoutes(r *router.Router, svc *services.Services) {
	// Tear down a sandbox. Idempotent; tearing down an unknown sandbox
	// still answers OK.
	r.DELETE("/api/sandboxes/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Sandbox id is required", perrors.NewErrInvalidRequest("Sandbox id is required", err))
			return
		}

		if svc.Lifecycle == nil {
			writeError(ctx, stdCtx, "Sandbox backend is not configured", perrors.NewErrConfiguration("Sandbox backend is not configured", nil))
			return
		}

		svc.Lifecycle.Teardown(stdCtx, id)

		writeOK(ctx, stdCtx, "Sandbox teardown completed", map[string]string{"sandboxId": id})
	})

	// List live sandboxes from the registry
	r.GET("/api/sandboxes", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if svc.Registry == nil {
			writeError(ctx, stdCtx, "Sandbox registry is not configured", perrors.NewErrConfiguration("Sandbox registry is not configured", nil))
			return
		}

		records, err := svc.Registry.List(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list sandboxes", perrors.NewErrInternalServerError("Failed to list sandboxes", err))
			return
		}

		writeOK(ctx, stdCtx, "Sandboxes retrieved successfully", records)
	})
}
