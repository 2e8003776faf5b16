package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// packPtrLen packs a guest pointer (high 32 bits) and length (low 32 bits).
func packPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed) //nolint:gosec // G115: halves of a packed i64
}

// writeGuestBytes copies data into a buffer obtained from the guest's
// allocate export and returns its address.
func writeGuestBytes(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	allocate := mod.ExportedFunction(exportAllocate)
	if allocate == nil {
		return 0, fmt.Errorf("guest does not export %q", exportAllocate)
	}
	results, err := allocate.Call(ctx, api.EncodeU32(uint32(len(data)))) //nolint:gosec // G115: wasm32 sizes
	if err != nil {
		return 0, fmt.Errorf("allocate %d bytes: %w", len(data), err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocate returned nothing")
	}

	ptr := api.DecodeU32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("write %d bytes at %d: outside guest memory", len(data), ptr)
	}
	return ptr, nil
}

// readGuest returns a view of length bytes at ptr. ok is false when the
// guest has no memory or the range falls outside it.
func readGuest(mod api.Module, ptr, length uint32) (view []byte, ok bool) {
	mem := mod.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, length)
}
