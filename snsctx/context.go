// Package snsctx carries request-scoped switches for bus traffic.
package snsctx

import (
	"context"
	"encoding/hex"
	"log/slog"
)

type ctxIndex int

const ctxIndexVerbose ctxIndex = iota

// IsVerbose reports whether wire traffic of the request should be dumped.
func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexVerbose).(bool)
	return ok && val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Dump logs data as hex at debug level when the request is verbose.
func Dump(ctx context.Context, log *slog.Logger, msg string, data []byte, args ...any) {
	if !IsVerbose(ctx) {
		return
	}
	log.DebugContext(ctx, msg, append(args, "len", len(data), "data", hex.EncodeToString(data))...)
}
