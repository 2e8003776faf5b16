package hostfuncs

// DefaultMaxRequestSize caps a query request read out of guest memory (1MiB).
const DefaultMaxRequestSize = 1 << 20

// MaxLogMessageSize caps a single addon log record (64KiB).
const MaxLogMessageSize = 64 << 10

// BoundedBuffer is an io.Writer that keeps the first limit bytes written to
// it and drops the rest. Writes always report success for the full length.
type BoundedBuffer struct {
	data  []byte
	limit int

	// Truncated is set once a non-empty write could not be kept whole.
	Truncated bool
}

// NewBoundedBuffer returns an empty buffer holding at most limit bytes.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{limit: max(limit, 0)}
}

func (b *BoundedBuffer) Write(p []byte) (int, error) {
	keep := p
	if room := b.limit - len(b.data); len(keep) > room {
		keep = keep[:room]
		b.Truncated = true
	}
	b.data = append(b.data, keep...)
	return len(p), nil
}

func (b *BoundedBuffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *BoundedBuffer) Bytes() []byte { return b.data }

func (b *BoundedBuffer) String() string { return string(b.data) }

func (b *BoundedBuffer) Len() int { return len(b.data) }

// Reset empties the buffer and clears Truncated.
func (b *BoundedBuffer) Reset() {
	b.data = b.data[:0]
	b.Truncated = false
}
