package common

import (
	"context"

	"github.com/LerianStudio/midaz/common/mlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type customContextKey string

var CustomContextKey = customContextKey("custom_context")

type CustomContextKeyValue struct {
	Tracer        trace.Tracer
	Logger        mlog.Logger
	CorrelationID string
}

// CorrelationCarrier is satisfied by context.Context; errors.go depends on
// this narrow interface instead of context.Context directly so the error
// model and its correlation-id stamping stay in the same package without a
// circular import on the concrete context machinery below.
type CorrelationCarrier interface {
	Value(key any) any
}

// NewLoggerFromContext extracts the Logger from the CustomContextKey value inside context
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) mlog.Logger {
	if customContext, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok &&
		customContext.Logger != nil {
		return customContext.Logger
	}

	return &mlog.NoneLogger{}
}

// ContextWithLogger returns a context with logger set in its CustomContextKey value.
func ContextWithLogger(ctx context.Context, logger mlog.Logger) context.Context {
	values := cloneContextValue(ctx)
	values.Logger = logger

	return context.WithValue(ctx, CustomContextKey, values)
}

// NewTracerFromContext returns a new tracer from the context.
//
//nolint:ireturn
func NewTracerFromContext(ctx context.Context) trace.Tracer {
	if customContext, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok &&
		customContext.Tracer != nil {
		return customContext.Tracer
	}

	return otel.Tracer("default")
}

// ContextWithTracer returns a context with tracer set in its CustomContextKey value.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	values := cloneContextValue(ctx)
	values.Tracer = tracer

	return context.WithValue(ctx, CustomContextKey, values)
}

// CorrelationIDFrom extracts the currently bound correlation id, or "" if
// none has been set.
func CorrelationIDFrom(c CorrelationCarrier) string {
	if customContext, ok := c.Value(CustomContextKey).(*CustomContextKeyValue); ok {
		return customContext.CorrelationID
	}

	return ""
}

// SetCorrelationID is the "set" operation of the correlation-id scope: it
// returns a derived context with id bound, leaving ctx itself untouched.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	values := cloneContextValue(ctx)
	values.CorrelationID = id

	return context.WithValue(ctx, CustomContextKey, values)
}

// GetCorrelationID is the "get" operation.
func GetCorrelationID(ctx context.Context) string {
	return CorrelationIDFrom(ctx)
}

// ClearCorrelationID is the "clear" operation: it returns a context with no
// correlation id bound.
func ClearCorrelationID(ctx context.Context) context.Context {
	return SetCorrelationID(ctx, "")
}

// WithCorrelationID is the save-set-run-restore operation. Because
// context.Context is immutable, binding id only ever produces a derived
// context passed to f; the caller's own ctx is never mutated, so the bound
// id observed through ctx after WithCorrelationID returns is automatically
// whatever it was at entry.
func WithCorrelationID(ctx context.Context, id string, f func(ctx context.Context)) {
	f(SetCorrelationID(ctx, id))
}

func cloneContextValue(ctx context.Context) *CustomContextKeyValue {
	if values, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok && values != nil {
		copied := *values
		return &copied
	}

	return &CustomContextKeyValue{}
}
