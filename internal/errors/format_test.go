package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: a buffer overflow with a suggestion
	err := BufferOverflowError(2048, 1024)

	// When: formatting for CLI
	out := FormatForCLI(err)

	// Then: message, hint and code are present
	assert.Contains(t, out, "Error: message needs 2048 bytes")
	assert.Contains(t, out, "Hint: Raise buffer.capacity")
	assert.Contains(t, out, "Code: ERR_501_BUFFER_OVERFLOW")
}

func TestFormatForCLI_ShowsCause(t *testing.T) {
	err := LoadError("libx.so", errors.New("cannot open shared object file"))

	out := FormatForCLI(err)

	assert.Contains(t, out, "Cause: cannot open shared object file")
}

func TestFormatForCLI_StandardErrorIsWrapped(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
}

func TestFormatForCLI_Nil(t *testing.T) {
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_ProducesStructuredOutput(t *testing.T) {
	err := SymbolNotFoundError("nope", "libexternal_dy.so", errors.New("undefined symbol: nope"))

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeSymbolNotFound, decoded["code"])
	assert.Equal(t, "LOAD", decoded["category"])
	assert.Equal(t, "ERROR", decoded["severity"])
	assert.Equal(t, "undefined symbol: nope", decoded["cause"])
	details, ok := decoded["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nope", details["symbol"])
}

func TestFormatForLog_FlattensDetails(t *testing.T) {
	err := LinkError("cdylib_add", nil)

	fields := FormatForLog(err)

	assert.Equal(t, ErrCodeLinkUnresolved, fields["error_code"])
	assert.Equal(t, "FATAL", fields["severity"])
	assert.Equal(t, "cdylib_add", fields["detail_symbol"])
}

func TestFormatForLog_StandardError(t *testing.T) {
	fields := FormatForLog(errors.New("plain"))

	assert.Equal(t, map[string]any{"error": "plain"}, fields)
	assert.Nil(t, FormatForLog(nil))
}
