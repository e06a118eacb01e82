package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mangagraph"
	"github.com/soundprediction/mangagraph/pkg/server/dto"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// StatusClientClosedRequest is sent when the caller went away before the
// response was ready.
const StatusClientClosedRequest = 499

// StatusFor maps a client error to an HTTP status code.
func StatusFor(err error) int {
	var unsupported *types.UnsupportedVectorPropertyError
	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &unsupported),
		errors.Is(err, types.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mangagraph.ErrNoEmbedder):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "store_unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	case http.StatusNotImplemented:
		return "not_configured"
	}
	return "internal_error"
}

// writeError logs err and writes the matching error response. A cancelled
// request gets no body.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := StatusFor(err)
	requestID := RequestID(c)
	if status == StatusClientClosedRequest {
		logger.Info("Request cancelled by client", "path", c.FullPath(), "request_id", requestID)
		c.AbortWithStatus(status)
		return
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		logger.Debug("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:     errorCode(status),
		Message:   err.Error(),
		Code:      status,
		RequestID: requestID,
	})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:     errorCode(http.StatusBadRequest),
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: RequestID(c),
	})
}

// RequestID returns the request id stored on the request context.
func RequestID(c *gin.Context) string {
	id, _ := c.Request.Context().Value(types.ContextKeyRequestID).(string)
	return id
}
