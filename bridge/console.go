package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/wasm-loader/log"
	"github.com/tetratelabs/wazero/api"
)

// ConsoleBundle returns the logging functions of the bridge:
//
//   - log(handle): logs the value behind a handle at info level.
//   - log_message(ptr, len): re-emits a JSON log record written by the module.
func ConsoleBundle(logger *slog.Logger) Bundle {
	if logger == nil {
		logger = slog.Default()
	}
	return NewBundle(
		Func{
			Name:    "log",
			Params:  []api.ValueType{i32},
			Results: none,
			Fn: func(ctx context.Context, c *Call) {
				v, ok := c.Handles.Get(c.Handle(0))
				if !ok {
					c.Throw(fmt.Errorf("log: unknown handle %d", c.Handle(0)))
				}
				logger.InfoContext(ctx, describe(v), "module", moduleName(c))
			},
		},
		Func{
			Name:    "log_message",
			Params:  []api.ValueType{i32, i32},
			Results: none,
			Fn: func(ctx context.Context, c *Call) {
				data, err := c.Bytes(c.U32(0), c.U32(1))
				if err != nil {
					c.Throw(err)
				}
				msg, err := log.DecodeMessage(data)
				if err != nil {
					logger.WarnContext(ctx, "bridge: undecodable log message", "module", moduleName(c), "payload", string(data))
					return
				}
				log.Emit(ctx, logger, msg, slog.String("module", moduleName(c)))
			},
		},
	)
}

// describe renders a handle value for the console.
func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case View:
		b, ok := val.Bytes()
		if !ok {
			return "<detached view>"
		}
		return fmt.Sprintf("%q", b)
	case api.Module:
		return fmt.Sprintf("[instance %s]", val.Name())
	default:
		return fmt.Sprint(val)
	}
}
