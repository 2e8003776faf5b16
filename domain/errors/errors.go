// Package errors provides the typed error taxonomy of the addon host.
// All error types support unwrapping via errors.As() and errors.Is().
//
// Per-addon failures (CompileError, InstantiateError, GuestTrapError) are
// contained by the addon host; ApplicationError is what reaches callers.
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/deckforge/addonhost/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// CompileError is returned when an addon binary is malformed or does not
// have the expected interface shape.
type CompileError struct {
	Err error
	// Missing lists exports the binary lacks, if that was the cause.
	Missing []string
}

func (e *CompileError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("compile addon: missing exports %v", e.Missing)
	}
	return fmt.Sprintf("compile addon: %v", e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CompileError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "compile"}
	if len(e.Missing) > 0 {
		detail.Code = "interface_shape"
		detail.Details = map[string]any{"missing": e.Missing}
	}
	return detail
}

// InstantiateError is returned when a compiled addon cannot be instantiated,
// for example because an import does not resolve or a limit is exceeded.
type InstantiateError struct {
	Err   error
	Addon string
}

func (e *InstantiateError) Error() string {
	if e.Addon != "" {
		return fmt.Sprintf("instantiate addon %s: %v", e.Addon, e.Err)
	}
	return fmt.Sprintf("instantiate addon: %v", e.Err)
}

func (e *InstantiateError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InstantiateError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "instantiate"}
}

// GuestTrapError is returned when a call into addon code faults.
// It is fatal only to that call; the addon stays loaded.
type GuestTrapError struct {
	Err      error
	Addon    string
	Function string
}

func (e *GuestTrapError) Error() string {
	if e.Addon != "" {
		return fmt.Sprintf("addon %s trapped in %s: %v", e.Addon, e.Function, e.Err)
	}
	return fmt.Sprintf("addon trapped in %s: %v", e.Function, e.Err)
}

func (e *GuestTrapError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the trap was caused by the call deadline.
func (e *GuestTrapError) Timeout() bool {
	var te *TimeoutError
	return stdErrors.As(e.Err, &te)
}

// ToErrorDetail implements DetailedError.
func (e *GuestTrapError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "trap", Code: e.Function}
	if e.Timeout() {
		detail.Type = "timeout"
		detail.IsTimeout = true
	}
	return detail
}

// TimeoutError represents an addon call that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: e.Operation, IsTimeout: true}
}

// ApplicationCode classifies host-level misuse.
type ApplicationCode string

const (
	CodeCollectionNotOpen     ApplicationCode = "collection_not_open"
	CodeCollectionAlreadyOpen ApplicationCode = "collection_already_open"
	CodeAddonNotFound         ApplicationCode = "addon_not_found"
	CodeAddonStopped          ApplicationCode = "addon_stopped"
	CodeAddonsDirUnreadable   ApplicationCode = "addons_dir_unreadable"
	CodeNoteNotFound          ApplicationCode = "note_not_found"
	CodeDeckNotFound          ApplicationCode = "deck_not_found"
)

// ApplicationError is a host-level failure surfaced to the caller.
type ApplicationError struct {
	Err     error
	Code    ApplicationCode
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// Is matches another ApplicationError with the same code, so callers can
// write errors.Is(err, errors.ErrCollectionNotOpen).
func (e *ApplicationError) Is(target error) bool {
	t, ok := target.(*ApplicationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToErrorDetail implements DetailedError.
func (e *ApplicationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "application", Code: string(e.Code)}
}

// Sentinels for errors.Is comparisons.
var (
	ErrCollectionNotOpen     = &ApplicationError{Code: CodeCollectionNotOpen, Message: "collection not open"}
	ErrCollectionAlreadyOpen = &ApplicationError{Code: CodeCollectionAlreadyOpen, Message: "collection already open"}
	ErrAddonNotFound         = &ApplicationError{Code: CodeAddonNotFound, Message: "addon not found"}
	ErrAddonStopped          = &ApplicationError{Code: CodeAddonStopped, Message: "addon stopped"}
	ErrNoteNotFound          = &ApplicationError{Code: CodeNoteNotFound, Message: "note not found"}
	ErrDeckNotFound          = &ApplicationError{Code: CodeDeckNotFound, Message: "deck not found"}
)

// NewAddonNotFoundError reports an addon id outside the loaded range.
func NewAddonNotFoundError(addonID uint32, loaded int) *ApplicationError {
	return &ApplicationError{
		Code:    CodeAddonNotFound,
		Message: fmt.Sprintf("addon id %d out of range (%d loaded)", addonID, loaded),
	}
}

// NewAddonStoppedError reports a call to an addon whose instance was
// stopped by an earlier timeout or exit. The addon keeps its id.
func NewAddonStoppedError(addonID uint32, name string) *ApplicationError {
	return &ApplicationError{
		Code:    CodeAddonStopped,
		Message: fmt.Sprintf("addon %d (%s) was stopped by an earlier failure; reload addons to restart it", addonID, name),
	}
}

// FieldCountError is returned when an addon-returned note carries more
// fields than the host note has. Such edits are rejected, never appended.
type FieldCountError struct {
	Returned int
	Existing int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("addon returned %d fields but note has %d", e.Returned, e.Existing)
}

// ToErrorDetail implements DetailedError.
func (e *FieldCountError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "field_count"}
}

// ManifestError is returned when an addon manifest fails validation.
type ManifestError struct {
	Errors []entities.ValidationError
}

func (e *ManifestError) Error() string {
	msg := "invalid addon manifest"
	for _, ve := range e.Errors {
		msg += fmt.Sprintf("; %s: %s", ve.Field, ve.Message)
	}
	return msg
}

// ToErrorDetail implements DetailedError.
func (e *ManifestError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "manifest"}
}

// WireFormatError represents a boundary encoding/decoding error.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "wire_format", Code: e.Operation}
}
