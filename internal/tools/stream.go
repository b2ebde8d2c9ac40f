package tools

import "context"

// TokenCallback is used to stream incremental text output.
type TokenCallback func(chunk string)

type ctxKey string

const ctxTokenCallbackKey ctxKey = "token_cb"

// WithTokenCallback makes language tools stream their output to cb.
func WithTokenCallback(ctx context.Context, cb TokenCallback) context.Context {
    if cb == nil { return ctx }
    return context.WithValue(ctx, ctxTokenCallbackKey, cb)
}

func tokenCallback(ctx context.Context) func(string) {
    if cb, ok := ctx.Value(ctxTokenCallbackKey).(TokenCallback); ok && cb != nil { return cb }
    return nil
}
