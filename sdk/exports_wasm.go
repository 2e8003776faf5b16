//go:build wasip1

package sdk

import (
	"github.com/deckforge/addonhost/internal/abi"
	_ "github.com/deckforge/addonhost/log" // routes slog to the host log capability
)

func init() {
	onPanic = abi.FreeAllTracked
}

//go:wasmexport init
func exportInit() uint64 {
	return abi.PtrFromBytes(handleInit())
}

//go:wasmexport on_tool_menu_entry_clicked
func exportMenuClick(menuIdx uint32) {
	handleMenuClick(menuIdx)
}

// The host allocated the request through allocate; it is released here
// once decoded. The result stays pinned until the host calls deallocate.
//
//go:wasmexport before_add_note
func exportBeforeAddNote(ptr, length uint32) uint64 {
	packed := abi.PackPtrLen(ptr, length)
	payload := abi.BytesFromPtr(packed)
	abi.DeallocatePacked(packed)
	return abi.PtrFromBytes(handleBeforeAddNote(payload))
}
