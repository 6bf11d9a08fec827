package bridge

import (
	"context"
	"fmt"
	"log/slog"
)

// Middleware wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps outermost).
type Middleware func(next Handler) Handler

// PanicRecoveryMiddleware converts unexpected panics inside bridge functions
// into a ThrownError so the module call fails with a typed error.
// Values thrown with Call.Throw pass through untouched.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Call) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if thrown, ok := r.(*ThrownError); ok {
					panic(thrown)
				}
				logger.ErrorContext(ctx, "bridge: recovered panic", "function", c.function, "panic", fmt.Sprint(r))
				panic(&ThrownError{Function: c.function, Value: panicValue(r)})
			}()
			next(ctx, c)
		}
	}
}

func panicValue(r any) any {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return v
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// LoggingMiddleware logs every bridge call at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Call) {
			logger.DebugContext(ctx, "bridge: call", "function", c.function, "module", moduleName(c))
			next(ctx, c)
		}
	}
}

func moduleName(c *Call) string {
	if c.Module == nil {
		return ""
	}
	return c.Module.Name()
}
