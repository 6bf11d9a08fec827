package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Emit re-emits a module log record through logger. The record keeps its
// own timestamp and level. Extra attrs are appended after the record's.
func Emit(ctx context.Context, logger *slog.Logger, msg LogMessageWire, extra ...slog.Attr) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(msg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if !logger.Enabled(ctx, level) {
		return
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	record := slog.NewRecord(ts, level, msg.Message, 0)
	for _, a := range msg.Attrs {
		record.AddAttrs(FromWire(a))
	}
	record.AddAttrs(extra...)
	_ = logger.Handler().Handle(ctx, record)
}

// DecodeMessage parses a JSON encoded LogMessageWire.
func DecodeMessage(data []byte) (LogMessageWire, error) {
	var msg LogMessageWire
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode log message: %w", err)
	}
	return msg, nil
}
