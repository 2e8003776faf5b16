package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	addonlog "github.com/deckforge/addonhost/log"
)

// LogSink backs the log capability. It forwards addon diagnostics to the
// host logger and never reports failure to the caller.
type LogSink struct {
	logger *slog.Logger
	limit  int
}

// LogSinkOption configures a LogSink.
type LogSinkOption func(*LogSink)

// WithLogLimit overrides MaxLogMessageSize.
func WithLogLimit(limit int) LogSinkOption {
	return func(s *LogSink) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewLogSink creates a LogSink writing to logger, or slog.Default if nil.
func NewLogSink(logger *slog.Logger, opts ...LogSinkOption) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LogSink{logger: logger, limit: MaxLogMessageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log records one message from addon. The payload is either a JSON
// LogMessageWire or arbitrary bytes logged verbatim at info level.
func (s *LogSink) Log(ctx context.Context, addon string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WarnContext(ctx, "addon log dropped",
				"addon", addon, "panic", fmt.Sprint(r))
		}
	}()

	buf := NewBoundedBuffer(s.limit)
	_, _ = buf.Write(payload)

	var msg addonlog.LogMessageWire
	if !buf.Truncated && json.Unmarshal(buf.Bytes(), &msg) == nil && msg.Message != "" {
		attrs := make([]any, 0, len(msg.Attrs)+1)
		attrs = append(attrs, slog.String("addon", addon))
		for _, a := range addonlog.ToSlogAttrs(msg.Attrs) {
			attrs = append(attrs, a)
		}
		s.logger.Log(ctx, msg.SlogLevel(), msg.Message, attrs...)
		return
	}

	text := buf.String()
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	attrs := []any{slog.String("addon", addon)}
	if buf.Truncated {
		attrs = append(attrs, slog.Int("original_bytes", len(payload)), slog.Bool("truncated", true))
	}
	s.logger.InfoContext(ctx, text, attrs...)
}

// Drop records that a log call could not be read at all, for example
// because the guest passed a pointer outside its memory.
func (s *LogSink) Drop(ctx context.Context, addon, reason string) {
	s.logger.WarnContext(ctx, "addon log dropped", "addon", addon, "reason", reason)
}
