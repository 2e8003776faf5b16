package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONSink(t *testing.T, opts ...LogSinkOption) (*LogSink, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewLogSink(logger, opts...), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestLogSink_StructuredMessage(t *testing.T) {
	sink, buf := newJSONSink(t)

	payload := []byte(`{"level":"WARN","message":"slow hook","attrs":[{"key":"ms","type":"int64","value":"120"}]}`)
	sink.Log(context.Background(), "addon-1", payload)

	rec := lastRecord(t, buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "slow hook", rec["msg"])
	assert.Equal(t, "addon-1", rec["addon"])
	assert.Equal(t, float64(120), rec["ms"])
}

func TestLogSink_RawText(t *testing.T) {
	sink, buf := newJSONSink(t)

	sink.Log(context.Background(), "addon-0", []byte("Hello from a Wasm addon!"))

	rec := lastRecord(t, buf)
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "Hello from a Wasm addon!", rec["msg"])
	assert.NotContains(t, rec, "truncated")
}

func TestLogSink_NeverFails(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"invalid utf8", []byte{0xff, 0xfe, 'o', 'k'}},
		{"json without message", []byte(`{"level":"ERROR"}`)},
		{"json array", []byte(`[1,2,3]`)},
		{"nul bytes", []byte("a\x00b")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, buf := newJSONSink(t)
			assert.NotPanics(t, func() {
				sink.Log(context.Background(), "addon-2", tt.payload)
			})
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestLogSink_Truncates(t *testing.T) {
	sink, buf := newJSONSink(t, WithLogLimit(8))

	sink.Log(context.Background(), "addon-3", []byte(strings.Repeat("y", 100)))

	rec := lastRecord(t, buf)
	assert.Equal(t, "yyyyyyyy", rec["msg"])
	assert.Equal(t, true, rec["truncated"])
	assert.Equal(t, float64(100), rec["original_bytes"])
}

func TestLogSink_OversizedJSONLoggedRaw(t *testing.T) {
	sink, buf := newJSONSink(t, WithLogLimit(16))

	sink.Log(context.Background(), "addon-3", []byte(`{"level":"INFO","message":"this is far too long"}`))

	rec := lastRecord(t, buf)
	assert.Equal(t, `{"level":"INFO",`, rec["msg"])
	assert.Equal(t, true, rec["truncated"])
}

func TestNewLogSink_Defaults(t *testing.T) {
	sink := NewLogSink(nil, WithLogLimit(-1))
	assert.Equal(t, MaxLogMessageSize, sink.limit)
	assert.NotNil(t, sink.logger)
}

func TestLogSink_Drop(t *testing.T) {
	sink, buf := newJSONSink(t)

	sink.Drop(context.Background(), "addon-5", "out of bounds")

	rec := lastRecord(t, buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "addon log dropped", rec["msg"])
	assert.Equal(t, "out of bounds", rec["reason"])
}
