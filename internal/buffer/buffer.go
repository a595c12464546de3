// Package buffer implements the caller-owned, fixed-capacity output buffer
// that crosses the foreign-function boundary.
//
// The caller allocates a Buffer pre-filled with a NUL-terminated label,
// hands the callee a transient (pointer, capacity) view, and reads the
// callee's message back once the call returns. Capacity always travels
// with the pointer, so a callee never has to guess how much room it has.
package buffer

import (
	"bytes"
	"strings"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// DefaultCapacity matches the 1024-byte buffers of the reference calls.
const DefaultCapacity = 1024

// Buffer is a bounded byte region exclusively owned by the caller.
// The zero value is not usable; create buffers with New.
type Buffer struct {
	data []byte
}

// New allocates a buffer of exactly capacity bytes holding label followed by
// a NUL terminator and zero padding.
func New(label string, capacity int) (*Buffer, error) {
	if strings.IndexByte(label, 0) >= 0 {
		return nil, bridgeerrors.New(bridgeerrors.ErrCodeInvalidLabel,
			"label must not contain NUL bytes", nil)
	}
	if capacity <= 0 || len(label)+1 > capacity {
		return nil, bridgeerrors.BufferOverflowError(len(label)+1, capacity)
	}

	data := make([]byte, capacity)
	copy(data, label)
	return &Buffer{data: data}, nil
}

// Capacity returns the total size of the region, terminator included.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Ptr returns a pointer to the first byte for handing to a foreign callee.
// The pointer must not be retained after the call returns.
func (b *Buffer) Ptr() *byte {
	return &b.data[0]
}

// String returns the contents up to the first NUL. Before a call this is the
// label; after a successful call it is the callee's message.
func (b *Buffer) String() string {
	if i := bytes.IndexByte(b.data, 0); i >= 0 {
		return string(b.data[:i])
	}
	// Unterminated region: a callee broke the contract.
	return string(b.data)
}

// Fits reports whether a message of n bytes (terminator excluded) fits.
func (b *Buffer) Fits(n int) bool {
	return n >= 0 && n+1 <= len(b.data)
}

// CheckFit returns ERR_501_BUFFER_OVERFLOW when a message of n bytes
// (terminator excluded) would not fit.
func (b *Buffer) CheckFit(n int) error {
	if !b.Fits(n) {
		return bridgeerrors.BufferOverflowError(n+1, len(b.data))
	}
	return nil
}

// Fill overwrites the buffer with msg and a terminator. On overflow the
// buffer is left untouched.
func (b *Buffer) Fill(msg string) error {
	if err := b.CheckFit(len(msg)); err != nil {
		return err
	}
	n := copy(b.data, msg)
	clear(b.data[n:])
	return nil
}
