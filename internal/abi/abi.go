//go:build wasip1

// Package abi manages the guest side of the addon memory contract: buffers
// handed to the host are pinned until the host releases them, and byte
// ranges travel as a packed uint64 (pointer in the high 32 bits, length in
// the low 32 bits).
package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// PtrHighBits is the shift of the pointer inside a packed value.
const PtrHighBits = 32

// DefaultMaxTotalAllocations caps live guest buffers.
const DefaultMaxTotalAllocations = 64 * 1024 * 1024

// pinned keeps host-visible buffers reachable so the Go GC cannot move or
// free them while the host holds their address.
var pinned = struct {
	sync.Mutex
	bufs  map[uint32][]byte
	total int
	limit int
}{
	bufs:  make(map[uint32][]byte),
	limit: DefaultMaxTotalAllocations,
}

// Option configures the allocator.
type Option func()

// WithMaxTotalAllocations changes the live-buffer cap. Non-positive values
// are ignored.
func WithMaxTotalAllocations(n int) Option {
	return func() {
		if n > 0 {
			pinned.limit = n
		}
	}
}

// Configure applies allocator options.
func Configure(opts ...Option) {
	pinned.Lock()
	defer pinned.Unlock()
	for _, opt := range opts {
		opt()
	}
}

// allocate is called by the host to obtain a buffer for request payloads.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	pinned.Lock()
	defer pinned.Unlock()

	if pinned.total+int(size) > pinned.limit {
		panic(fmt.Sprintf("abi: allocation of %d bytes exceeds limit (%d of %d in use)", size, pinned.total, pinned.limit))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	pinned.bufs[ptr] = buf
	pinned.total += int(size)
	return ptr
}

// deallocate unpins a buffer. Unknown pointers are ignored, so a double
// release is harmless. The stored length is used for accounting, not size.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, _ uint32) {
	pinned.Lock()
	defer pinned.Unlock()

	buf, ok := pinned.bufs[ptr]
	if !ok {
		return
	}
	delete(pinned.bufs, ptr)
	pinned.total -= len(buf)
}

// FreeAllTracked unpins every buffer. Export wrappers call it after a
// recovered panic.
func FreeAllTracked() {
	pinned.Lock()
	defer pinned.Unlock()
	clear(pinned.bufs)
	pinned.total = 0
}

// Stats reports the number of pinned buffers and their total size.
func Stats() (count, bytes int) {
	pinned.Lock()
	defer pinned.Unlock()
	return len(pinned.bufs), pinned.total
}

// PtrFromBytes copies data into a pinned buffer and returns its packed
// range. Empty data packs to 0.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data)) //nolint:gosec // G115: bounded by the allocation limit
	ptr := allocate(size)
	copy(memory(ptr, size), data)
	return PackPtrLen(ptr, size)
}

// BytesFromPtr copies out the range addressed by packed.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	out := make([]byte, length)
	copy(out, memory(ptr, length))
	return out
}

// DeallocatePacked unpins the buffer addressed by packed.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}

// PackPtrLen packs a range. A null pointer with a length panics.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with length %d", length))
	}
	return uint64(ptr)<<PtrHighBits | uint64(length)
}

// UnpackPtrLen splits a packed range. A null pointer with a length panics.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits)
	length = uint32(packed) //nolint:gosec // G115: low half by construction
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with length %d", length))
	}
	return ptr, length
}

// memory views length bytes of linear memory at ptr.
func memory(ptr, length uint32) []byte {
	//nolint:gosec // G103: linear memory offsets are addresses on wasm
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}
