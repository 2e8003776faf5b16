//go:build !wasip1

package log

import (
	"context"
	"log/slog"
	"os"
)

// nativeOutput receives guest records when addon code runs natively, as in
// unit tests.
var nativeOutput slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})

// Handle round-trips the record through the wire format, so native runs log
// exactly what the host would see.
func (h *GuestHandler) Handle(ctx context.Context, record slog.Record) error {
	msg := h.message(record)
	out := slog.NewRecord(msg.Timestamp, msg.SlogLevel(), msg.Message, record.PC)
	out.AddAttrs(ToSlogAttrs(msg.Attrs)...)
	return nativeOutput.Handle(ctx, out)
}
