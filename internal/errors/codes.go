// Package errors provides structured error handling for ffibridge.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Build errors (compiler, archive, shared object)
//   - 3XX: Link errors
//   - 4XX: Runtime loading errors (open, resolve, invoke)
//   - 5XX: Shared output buffer errors
//   - 6XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryBuild indicates the embedded-source compile step failed.
	CategoryBuild Category = "BUILD"
	// CategoryLink indicates a symbol could not be resolved at link time.
	CategoryLink Category = "LINK"
	// CategoryLoad indicates runtime library loading or symbol resolution failed.
	CategoryLoad Category = "LOAD"
	// CategoryBuffer indicates a shared output buffer contract violation.
	CategoryBuffer Category = "BUFFER"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Build errors (200-299)
	ErrCodeBuildFailed      = "ERR_201_BUILD_FAILED"
	ErrCodeCompilerNotFound = "ERR_202_COMPILER_NOT_FOUND"
	ErrCodeArtifactMissing  = "ERR_203_ARTIFACT_MISSING"

	// Link errors (300-399)
	ErrCodeLinkUnresolved = "ERR_301_LINK_UNRESOLVED"

	// Load errors (400-499)
	ErrCodeLoadFailed        = "ERR_401_LOAD_FAILED"
	ErrCodeSymbolNotFound    = "ERR_402_SYMBOL_NOT_FOUND"
	ErrCodeSignatureMismatch = "ERR_403_SIGNATURE_MISMATCH"
	ErrCodeLibraryClosed     = "ERR_404_LIBRARY_CLOSED"

	// Buffer errors (500-599)
	ErrCodeBufferOverflow = "ERR_501_BUFFER_OVERFLOW"
	ErrCodeInvalidLabel   = "ERR_502_INVALID_LABEL"

	// Internal errors (600-699)
	ErrCodeInternal      = "ERR_601_INTERNAL"
	ErrCodeHistoryFailed = "ERR_602_HISTORY_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// First digit of the numeric portion (e.g., '4' from "ERR_401_LOAD_FAILED")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryBuild
	case '3':
		return CategoryLink
	case '4':
		return CategoryLoad
	case '5':
		return CategoryBuffer
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Build and link failures abort before the driver runs.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryBuild, CategoryLink:
		return SeverityFatal
	}
	if code == ErrCodeConfigNotFound {
		return SeverityWarning
	}
	return SeverityError
}
