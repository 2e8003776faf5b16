package hostfuncs

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"github.com/deckforge/addonhost/domain/errors"
)

// Error kinds an addon can receive instead of a result.
const (
	KindValidation     = "VALIDATION_ERROR"
	KindNotFound       = "NOT_FOUND"
	KindNotImplemented = "NOT_IMPLEMENTED"
	KindInternal       = "INTERNAL_ERROR"
)

var kindStatus = map[string]int{
	KindValidation:     400,
	KindNotFound:       404,
	KindInternal:       500,
	KindNotImplemented: 501,
}

// ErrorResponse is what a query capability answers when it cannot produce a
// result. Addons decode it like any other response; nothing traps.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func newErrorResponse(kind, message string) ErrorResponse {
	return ErrorResponse{Error: kind, Message: message, Code: kindStatus[kind]}
}

// ToJSON encodes the response. The struct only holds strings and an int, so
// encoding cannot fail.
func (e ErrorResponse) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// NewValidationError reports a request the host could not accept.
func NewValidationError(message string) ErrorResponse {
	return newErrorResponse(KindValidation, message)
}

// NewNotFoundError reports a call to a function the registry does not hold.
func NewNotFoundError(name string) ErrorResponse {
	return newErrorResponse(KindNotFound, "unknown host function: "+name)
}

// NewNotImplementedError reports a declared capability without a backend.
func NewNotImplementedError(name string) ErrorResponse {
	return newErrorResponse(KindNotImplemented, "host function not implemented: "+name)
}

// NewInternalError reports a host-side failure.
func NewInternalError(message string) ErrorResponse {
	return newErrorResponse(KindInternal, message)
}

// NewPanicError reports a recovered handler panic.
func NewPanicError(recovered any) ErrorResponse {
	switch v := recovered.(type) {
	case error:
		return NewInternalError("panic: " + v.Error())
	case string:
		return NewInternalError("panic: " + v)
	default:
		return NewInternalError(fmt.Sprintf("panic: %v", v))
	}
}

// responseFor maps a query error onto the response an addon sees. Missing
// notes and decks are NOT_FOUND; everything else is internal.
func responseFor(err error) ErrorResponse {
	if stdErrors.Is(err, errors.ErrNoteNotFound) || stdErrors.Is(err, errors.ErrDeckNotFound) {
		return newErrorResponse(KindNotFound, err.Error())
	}
	return NewInternalError(err.Error())
}
