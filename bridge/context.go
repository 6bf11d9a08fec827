package bridge

import (
	"context"
)

type contextKey struct {
	name string
}

var functionNameKey = &contextKey{name: "bridge_function"}

// withFunctionName records the invoked bridge function on ctx.
func withFunctionName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, functionNameKey, name)
}

// FunctionName returns the bridge function being invoked, if any.
func FunctionName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(functionNameKey).(string)
	return name, ok
}
