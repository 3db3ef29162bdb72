package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey string

const (
	// Keys shared by gin.Context and context.Context.
	KeyLogger    = "logger"
	KeyTraceID   = "traceID"
	KeyAccountID = "accountID"
)

// ContextKey returns the typed key used on a std context for name.
func ContextKey(name string) any { return ctxKey(name) }

// WithLogger stores l on ctx.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey(KeyLogger), l)
}

// WithValue stores a string value on ctx under one of the shared keys.
func WithValue(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, ctxKey(key), value)
}

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(KeyLogger); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	if c.Request == nil {
		return base
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise attempts to enrich
// base with trace_id/account_id from context values.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(ctxKey(KeyLogger)).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	if tid, ok := ctx.Value(ctxKey(KeyTraceID)).(string); ok && tid != "" {
		fields = append(fields, "trace_id", tid)
	}
	if aid, ok := ctx.Value(ctxKey(KeyAccountID)).(string); ok && aid != "" {
		fields = append(fields, "account_id", aid)
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// TraceID returns the trace id stored on ctx, if any.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(ctxKey(KeyTraceID)).(string)
	return s
}
