package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
)

// BridgeError is the structured error type for ffibridge.
// It provides rich context for error handling, logging, and user presentation.
type BridgeError struct {
	// Code is the unique error code (e.g., "ERR_401_LOAD_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Build, Link, Load, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() against the sentinels below.
func (e *BridgeError) Is(target error) bool {
	if t, ok := target.(*BridgeError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *BridgeError) WithDetail(key, value string) *BridgeError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *BridgeError) WithSuggestion(suggestion string) *BridgeError {
	e.Suggestion = suggestion
	return e
}

// New creates a new BridgeError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *BridgeError {
	return &BridgeError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a BridgeError from an existing error.
// The error's message becomes the BridgeError message.
func Wrap(code string, err error) *BridgeError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is matching by code.
var (
	ErrBuildFailed       = &BridgeError{Code: ErrCodeBuildFailed}
	ErrCompilerNotFound  = &BridgeError{Code: ErrCodeCompilerNotFound}
	ErrArtifactMissing   = &BridgeError{Code: ErrCodeArtifactMissing}
	ErrLinkUnresolved    = &BridgeError{Code: ErrCodeLinkUnresolved}
	ErrLoadFailed        = &BridgeError{Code: ErrCodeLoadFailed}
	ErrSymbolNotFound    = &BridgeError{Code: ErrCodeSymbolNotFound}
	ErrSignatureMismatch = &BridgeError{Code: ErrCodeSignatureMismatch}
	ErrLibraryClosed     = &BridgeError{Code: ErrCodeLibraryClosed}
	ErrBufferOverflow    = &BridgeError{Code: ErrCodeBufferOverflow}
	ErrInvalidLabel      = &BridgeError{Code: ErrCodeInvalidLabel}
	ErrConfigInvalid     = &BridgeError{Code: ErrCodeConfigInvalid}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *BridgeError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// BuildError reports a failed compile or archive step.
func BuildError(message string, cause error) *BridgeError {
	return New(ErrCodeBuildFailed, message, cause)
}

// LinkError reports a symbol that was not resolved when the binary was linked.
func LinkError(symbol string, cause error) *BridgeError {
	return New(ErrCodeLinkUnresolved, fmt.Sprintf("symbol %s is not linked into this binary", symbol), cause).
		WithDetail("symbol", symbol)
}

// LoadError reports a shared library that could not be opened.
func LoadError(path string, cause error) *BridgeError {
	return New(ErrCodeLoadFailed, fmt.Sprintf("failed to load library %s", path), cause).
		WithDetail("path", path)
}

// SymbolNotFoundError reports a symbol missing from an open library.
func SymbolNotFoundError(symbol, path string, cause error) *BridgeError {
	return New(ErrCodeSymbolNotFound, fmt.Sprintf("symbol %s not found in %s", symbol, path), cause).
		WithDetail("symbol", symbol).
		WithDetail("path", path)
}

// BufferOverflowError reports a message that does not fit the caller's buffer.
// needed includes the NUL terminator.
func BufferOverflowError(needed, capacity int) *BridgeError {
	return New(ErrCodeBufferOverflow,
		fmt.Sprintf("message needs %d bytes but buffer capacity is %d", needed, capacity), nil).
		WithDetail("needed", strconv.Itoa(needed)).
		WithDetail("capacity", strconv.Itoa(capacity)).
		WithSuggestion(fmt.Sprintf("Raise buffer.capacity to at least %d", needed))
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *BridgeError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first BridgeError in err's chain.
func As(err error) (*BridgeError, bool) {
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if be, ok := As(err); ok {
		return be.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a BridgeError.
// Returns empty string if not a BridgeError.
func GetCode(err error) string {
	if be, ok := As(err); ok {
		return be.Code
	}
	return ""
}

// GetCategory extracts the category from a BridgeError.
// Returns empty string if not a BridgeError.
func GetCategory(err error) Category {
	if be, ok := As(err); ok {
		return be.Category
	}
	return ""
}
