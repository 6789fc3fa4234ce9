package types

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxRunID     ContextKey = "ctx_run_id"
)

const (
	UUID_PREFIX_RUN     = "run"
	UUID_PREFIX_REQUEST = "req"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a unique identifier with a prefix
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(CtxRunID).(string); ok {
		return runID
	}
	return ""
}

func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, CtxRunID, runID)
}
