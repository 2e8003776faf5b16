//go:build wasip1

package abi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
	}{
		{name: "typical", ptr: 0x12345678, length: 0xABCDEF00},
		{name: "zero", ptr: 0, length: 0},
		{name: "max pointer", ptr: 0xFFFFFFFF, length: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, uint64(tt.ptr)<<PtrHighBits|uint64(tt.length), packed)

			ptr, length := UnpackPtrLen(packed)
			assert.Equal(t, tt.ptr, ptr)
			assert.Equal(t, tt.length, length)
		})
	}
}

func TestNullPointerWithLengthPanics(t *testing.T) {
	assert.Panics(t, func() { PackPtrLen(0, 100) })
	assert.Panics(t, func() { UnpackPtrLen(1) })
}

func TestAllocateDeallocate(t *testing.T) {
	FreeAllTracked()

	ptr := allocate(1024)
	require.NotZero(t, ptr)
	count, total := Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, 1024, total)

	deallocate(ptr, 1024)
	deallocate(ptr, 1024)
	count, total = Stats()
	assert.Zero(t, count)
	assert.Zero(t, total)

	assert.Zero(t, allocate(0))
}

func TestRoundTrip(t *testing.T) {
	FreeAllTracked()

	packed := PtrFromBytes([]byte(`{"name":"Example Addon"}`))
	assert.Equal(t, []byte(`{"name":"Example Addon"}`), BytesFromPtr(packed))

	DeallocatePacked(packed)
	count, _ := Stats()
	assert.Zero(t, count)

	assert.Zero(t, PtrFromBytes(nil))
	assert.Nil(t, BytesFromPtr(0))
	DeallocatePacked(0)
}

func TestAllocationLimit(t *testing.T) {
	FreeAllTracked()
	Configure(WithMaxTotalAllocations(1024))
	defer Configure(WithMaxTotalAllocations(DefaultMaxTotalAllocations))

	ptr := allocate(512)
	require.NotZero(t, ptr)
	assert.Panics(t, func() { allocate(2048) })
	deallocate(ptr, 512)

	Configure(WithMaxTotalAllocations(0))
	ptr = allocate(1000)
	assert.NotZero(t, ptr, "a non-positive limit is ignored")
	deallocate(ptr, 1000)
}

func TestConcurrentUse(t *testing.T) {
	FreeAllTracked()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			packed := PtrFromBytes([]byte("payload"))
			_ = BytesFromPtr(packed)
			DeallocatePacked(packed)
		}()
	}
	wg.Wait()

	count, _ := Stats()
	assert.Zero(t, count)
}
