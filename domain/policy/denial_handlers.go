package policy

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*StderrDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)
var _ ports.DenialHandler = (*LogDenialHandler)(nil)

// StderrDenialHandler writes denials to stderr.
type StderrDenialHandler struct{}

func (h *StderrDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	fmt.Fprintf(os.Stderr, "Source Denied [%s]: %v (Reason: %s)\n", kind, request, reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(kind string, request interface{}, reason string) {}

// LogDenialHandler logs denials at warn level.
type LogDenialHandler struct {
	Logger *slog.Logger
}

func (h *LogDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"denial", kind}
	if loc, ok := request.(entities.SourceLocation); ok {
		attrs = append(attrs, "source_kind", loc.Kind)
		if loc.Kind == entities.SourceKindHTTP {
			attrs = append(attrs, "host", loc.Host, "port", loc.Port)
		}
		if loc.Path != "" {
			attrs = append(attrs, "path", loc.Path)
		}
	} else {
		attrs = append(attrs, "request", request)
	}
	logger.Warn("wasm-loader: source denied", append(attrs, "reason", reason)...)
}
