package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> migrate).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	// ContextKeyRunId identifies one pipeline invocation across stage logs.
	ContextKeyRunId = ContextKey("RunId")

	// ContextKeyActor is the operator recorded in migration_ledgers.applied_by.
	ContextKeyActor = ContextKey("Actor")

	// ContextKeyDryRun is true when no stage may commit a write.
	ContextKeyDryRun = ContextKey("DryRun")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	v, ok := ctx.Value(key).(bool)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
