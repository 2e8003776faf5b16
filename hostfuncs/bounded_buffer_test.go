package hostfuncs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedBuffer(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		writes        []string
		want          string
		wantTruncated bool
	}{
		{name: "under limit", limit: 16, writes: []string{"hello"}, want: "hello"},
		{name: "exactly at limit", limit: 5, writes: []string{"hello"}, want: "hello"},
		{name: "single write over limit", limit: 4, writes: []string{"hello"}, want: "hell", wantTruncated: true},
		{name: "second write crosses limit", limit: 8, writes: []string{"hello", " world"}, want: "hello wo", wantTruncated: true},
		{name: "writes after full", limit: 3, writes: []string{"abc", "def"}, want: "abc", wantTruncated: true},
		{name: "empty write at full is not truncation", limit: 3, writes: []string{"abc", ""}, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBoundedBuffer(tt.limit)
			for _, w := range tt.writes {
				n, err := buf.WriteString(w)
				require.NoError(t, err)
				assert.Equal(t, len(w), n, "writers must never see a short write")
			}
			assert.Equal(t, tt.want, buf.String())
			assert.Equal(t, []byte(tt.want), buf.Bytes())
			assert.Equal(t, len(tt.want), buf.Len())
			assert.Equal(t, tt.wantTruncated, buf.Truncated)
		})
	}
}

func TestBoundedBuffer_Reset(t *testing.T) {
	buf := NewBoundedBuffer(2)
	_, _ = buf.WriteString("abc")
	require.True(t, buf.Truncated)

	buf.Reset()
	assert.False(t, buf.Truncated)
	assert.Zero(t, buf.Len())

	_, _ = buf.WriteString("ok")
	assert.Equal(t, "ok", buf.String())
}

func TestBoundedBuffer_LogLimit(t *testing.T) {
	buf := NewBoundedBuffer(MaxLogMessageSize)
	_, _ = buf.WriteString(strings.Repeat("x", MaxLogMessageSize+1))
	assert.Equal(t, MaxLogMessageSize, buf.Len())
	assert.True(t, buf.Truncated)
}
