//go:build wasip1

package log

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/deckforge/addonhost/internal/abi"
)

// hostLog is the host's log capability (module addon_host, function log).
//
//go:wasmimport addon_host log
func hostLog(messagePacked uint64)

// Handle ships the record to the host. If the attributes cannot be
// encoded the host still gets the bare message as text.
func (h *GuestHandler) Handle(_ context.Context, record slog.Record) error {
	data, err := json.Marshal(h.message(record))
	if err != nil {
		data = []byte(record.Message)
	}
	packed := abi.PtrFromBytes(data)
	hostLog(packed)
	abi.DeallocatePacked(packed)
	return nil
}

func init() {
	slog.SetDefault(slog.New(NewGuestHandler(slog.LevelDebug)))
}
