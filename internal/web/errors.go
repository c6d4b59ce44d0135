package web

// errors.go maps errors to API responses.
//
// Every error response carries a code. Catalog errors use the catalog codes
// (SRC, ENC, ROW, PRC, RATE, OUT); request-level conditions use WEB codes:
//
//	WEB001 - catalog not built yet (503)
//	WEB002 - product not found (404)
//	WEB003 - malformed or invalid request (400)
//	WEB004 - reload already running (409)
//	WEB005 - rate limit exceeded (429)

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/logging"
)

var (
	errNotReady         = errors.New("catalog not built yet")
	errProductNotFound  = errors.New("product not found")
	errBadRequest       = errors.New("invalid request")
	errReloadInProgress = errors.New("catalog reload already in progress")
	errRateLimited      = errors.New("rate limit exceeded")
)

var webMessages = []struct {
	err error
	msg catalog.UserMessage
}{
	{errNotReady, catalog.UserMessage{
		Message: "The catalog is still being built",
		Action:  "Retry in a few seconds",
		Code:    "WEB001",
	}},
	{errProductNotFound, catalog.UserMessage{
		Message: "No product with this item number",
		Action:  "Check the item number",
		Code:    "WEB002",
	}},
	{errBadRequest, catalog.UserMessage{
		Message: "The request is invalid",
		Action:  "Fix the request body",
		Code:    "WEB003",
	}},
	{errReloadInProgress, catalog.UserMessage{
		Message: "A catalog reload is already running",
		Action:  "Wait for it to finish",
		Code:    "WEB004",
	}},
	{errRateLimited, catalog.UserMessage{
		Message: "Too many requests",
		Action:  "Slow down and retry later",
		Code:    "WEB005",
	}},
}

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

func mapError(err error) catalog.UserMessage {
	for _, m := range webMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return catalog.MapError(err)
}

// respondError logs err with request context and writes the mapped message.
// Details are only exposed for bad requests, where they describe the
// caller's own input.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := mapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if errors.Is(err, errBadRequest) {
		resp.Detail = err.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}
