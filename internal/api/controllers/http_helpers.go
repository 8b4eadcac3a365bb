package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	json "github.com/bytedance/sonic"
	"github.com/appdock/appdock/internal/api/response"
	"github.com/valyala/fasthttp"
)

// requestContext returns a baseline context for handlers. fasthttp does not provide
// a standard context, so we start from Background for downstream calls.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if traceCtx, ok := ctx.UserValue("traceCtx").(context.Context); ok {
		return traceCtx
	}
	return context.Background()
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

// writeRaw serializes data as the whole response body without the envelope.
// The build endpoints follow the original wire contract where the result is
// the body, so they bypass the standard wrapper.
func writeRaw(ctx *fasthttp.RequestCtx, stdCtx context.Context, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(stdCtx, "Unable to json encode response", slog.Any("error", err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.Set("content-type", "application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}
