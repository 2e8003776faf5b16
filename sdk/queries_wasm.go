//go:build wasip1

package sdk

import (
	"fmt"

	"github.com/deckforge/addonhost/hostfuncs"
	"github.com/deckforge/addonhost/internal/abi"
)

//go:wasmimport addon_host note_get
func hostNoteGet(packed uint64) uint64

//go:wasmimport addon_host note_find
func hostNoteFind(packed uint64) uint64

//go:wasmimport addon_host deck_get
func hostDeckGet(packed uint64) uint64

//go:wasmimport addon_host deck_list
func hostDeckList(packed uint64) uint64

var hostQueries = map[string]func(uint64) uint64{
	hostfuncs.FuncNoteGet:  hostNoteGet,
	hostfuncs.FuncNoteFind: hostNoteFind,
	hostfuncs.FuncDeckGet:  hostDeckGet,
	hostfuncs.FuncDeckList: hostDeckList,
}

func init() {
	callHost = callWasmHost
}

// callWasmHost passes request by packed range. The answer was written into
// a buffer the host obtained from allocate, so it is released here.
func callWasmHost(function string, request []byte) ([]byte, error) {
	fn, ok := hostQueries[function]
	if !ok {
		return nil, fmt.Errorf("%s: not a host query", function)
	}

	packed := abi.PtrFromBytes(request)
	result := fn(packed)
	abi.DeallocatePacked(packed)

	answer := abi.BytesFromPtr(result)
	abi.DeallocatePacked(result)
	return answer, nil
}
