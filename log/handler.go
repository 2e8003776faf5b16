package log

import (
	"context"
	"log/slog"
)

// GuestHandler is the slog.Handler used inside addons. Records become
// LogMessageWire values; groups are flattened into dotted keys because the
// wire format is flat.
type GuestHandler struct {
	level  slog.Leveler
	prefix string
	attrs  []LogAttrWire
}

var _ slog.Handler = (*GuestHandler)(nil)

// NewGuestHandler reports records at or above level. A nil level means info.
func NewGuestHandler(level slog.Leveler) *GuestHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &GuestHandler{level: level}
}

func (h *GuestHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GuestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	child := *h
	child.attrs = append([]LogAttrWire(nil), h.attrs...)
	for _, a := range attrs {
		child.attrs = flatten(child.attrs, h.prefix, a)
	}
	return &child
}

func (h *GuestHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := *h
	child.prefix = h.prefix + name + "."
	return &child
}

// message converts a record into its wire form.
func (h *GuestHandler) message(record slog.Record) LogMessageWire {
	msg := LogMessageWire{
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
		Attrs:     append([]LogAttrWire(nil), h.attrs...),
	}
	record.Attrs(func(a slog.Attr) bool {
		msg.Attrs = flatten(msg.Attrs, h.prefix, a)
		return true
	})
	return msg
}

func flatten(dst []LogAttrWire, prefix string, a slog.Attr) []LogAttrWire {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		if a.Equal(slog.Attr{}) {
			return dst
		}
		a.Key = prefix + a.Key
		return append(dst, toLogAttrWire(a))
	}
	// An unnamed group inlines its members.
	if a.Key != "" {
		prefix += a.Key + "."
	}
	for _, member := range a.Value.Group() {
		dst = flatten(dst, prefix, member)
	}
	return dst
}
