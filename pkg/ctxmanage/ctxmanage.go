package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey int

const TraceIdKey ctxKey = 1

// HeaderTraceID lets an upstream proxy pin the trace id of a request.
const HeaderTraceID = "X-Trace-Id"

// WithTraceId stores traceId in ctx.
func WithTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, TraceIdKey, traceId)
}

// TraceIdFromContext returns the trace id stored in ctx, or "unknown".
func TraceIdFromContext(ctx context.Context) string {
	if traceId, ok := ctx.Value(TraceIdKey).(string); ok && traceId != "" {
		return traceId
	}
	return "unknown"
}

// GetTraceIdOfRequest fetches the trace id the Logger middleware attached to the request.
func GetTraceIdOfRequest(c *gin.Context) string {
	return TraceIdFromContext(c.Request.Context())
}

// NewTraceId returns the inbound trace id when present, otherwise a fresh one.
func NewTraceId(inbound string) string {
	if inbound != "" {
		return inbound
	}
	return uuid.NewString()
}
