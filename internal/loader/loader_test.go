package loader

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	"github.com/Aman-CERP/ffibridge/internal/compute"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

func TestOpen_MissingFile(t *testing.T) {
	// Given: a path that does not exist
	path := t.TempDir() + "/libnothing.so"

	// When: opening it
	lib, err := Open(path)

	// Then: a recoverable load error naming the path
	require.Error(t, err)
	assert.Nil(t, lib)
	assert.ErrorIs(t, err, bridgeerrors.ErrLoadFailed)
	assert.False(t, bridgeerrors.IsFatal(err))
	assert.Contains(t, err.Error(), path)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, bridgeerrors.ErrLoadFailed)
}

func TestResolve_DyloadingAdd(t *testing.T) {
	// Given: the runtime library and a buffer labelled Jack
	lib, err := Open(buildExternalDy(t), WithStrictSignatures(true))
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	buf, err := buffer.New("Jack", buffer.DefaultCapacity)
	require.NoError(t, err)

	// When: resolving and calling dyloading_add(8, 9)
	sym, err := Resolve[AddFunc](lib, "dyloading_add")
	require.NoError(t, err)
	sum, err := CallAdd(sym, 8, 9, buf)

	// Then: 17 and the formatted message
	require.NoError(t, err)
	assert.Equal(t, int32(17), sum)
	assert.Equal(t, "[External dyloading] Hello Jack, the result (8 + 9) is 17!", buf.String())
	assert.Equal(t, compute.Format("External dyloading", "Jack", 8, 9, 17), buf.String())
	assert.Equal(t, "dyloading_add", sym.Name())
	assert.Equal(t, "i32(i32,i32,ptr,usize,ptr)", sym.Signature())
	assert.Same(t, lib, sym.Library())
}

func TestResolve_CdylibAddMatchesGo(t *testing.T) {
	lib, err := Open(buildExternalDy(t))
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	sym, err := Resolve[AddFunc](lib, "cdylib_add")
	require.NoError(t, err)

	tests := []struct {
		label string
		a, b  int32
	}{
		{"Lee", 1, 2},
		{"", 0, 0},
		{"negative", -5, 3},
		{"wrap", 2147483647, 1},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			buf, err := buffer.New(tt.label, buffer.DefaultCapacity)
			require.NoError(t, err)

			sum, err := CallAdd(sym, tt.a, tt.b, buf)
			require.NoError(t, err)
			assert.Equal(t, compute.Sum(tt.a, tt.b), sum)
			assert.Equal(t, compute.Format("C cdylib", tt.label, tt.a, tt.b, sum), buf.String())
		})
	}
}

func TestCallAdd_Overflow(t *testing.T) {
	// Given: a buffer one byte too small for the message
	lib, err := Open(buildExternalDy(t))
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()
	sym, err := Resolve[AddFunc](lib, "dyloading_add")
	require.NoError(t, err)

	msg := compute.Format("External dyloading", "Jack", 8, 9, 17)
	buf, err := buffer.New("Jack", len(msg))
	require.NoError(t, err)

	// When: calling
	sum, err := CallAdd(sym, 8, 9, buf)

	// Then: overflow reported with the needed capacity, label untouched, sum returned
	require.Error(t, err)
	assert.ErrorIs(t, err, bridgeerrors.ErrBufferOverflow)
	assert.Equal(t, int32(17), sum)
	assert.Equal(t, "Jack", buf.String())

	// And: exactly len(msg)+1 fits
	exact, err := buffer.New("Jack", len(msg)+1)
	require.NoError(t, err)
	_, err = CallAdd(sym, 8, 9, exact)
	require.NoError(t, err)
	assert.Equal(t, msg, exact.String())
}

func TestResolve_PlainDylibCall(t *testing.T) {
	lib, err := Open(buildExternalDy(t), WithStrictSignatures(true))
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	sym, err := Resolve[PlainFunc](lib, "dylib_call")
	require.NoError(t, err)

	sum, err := CallPlain(sym, 20, 22)
	require.NoError(t, err)
	assert.Equal(t, int32(42), sum)
}

func TestResolve_MissingSymbol(t *testing.T) {
	lib, err := Open(buildExternalDy(t))
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	sym, err := Resolve[AddFunc](lib, "no_such_add")
	require.Error(t, err)
	assert.Nil(t, sym)
	assert.ErrorIs(t, err, bridgeerrors.ErrSymbolNotFound)
	assert.False(t, lib.Has("no_such_add"))
	assert.True(t, lib.Has("dyloading_add"))
}

func TestResolve_SignatureMismatch(t *testing.T) {
	// Given: dyloading_add exports the hardened signature tag
	lib, err := Open(buildExternalDy(t))
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	tag, ok := lib.Signature("dyloading_add")
	require.True(t, ok)
	assert.Equal(t, "i32(i32,i32,ptr,usize,ptr)", tag)

	// When: binding it as a two-integer function
	_, err = Resolve[PlainFunc](lib, "dyloading_add")

	// Then: the call is refused before it can happen
	require.Error(t, err)
	assert.ErrorIs(t, err, bridgeerrors.ErrSignatureMismatch)
	be, ok := bridgeerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "i32(i32,i32)", be.Details["expected"])
	assert.Equal(t, tag, be.Details["exported"])
}

func TestResolve_UntaggedSymbol(t *testing.T) {
	path := buildUntagged(t)

	t.Run("lenient mode calls through", func(t *testing.T) {
		lib, err := Open(path)
		require.NoError(t, err)
		defer func() { _ = lib.Close() }()

		sym, err := Resolve[PlainFunc](lib, "untagged")
		require.NoError(t, err)
		sum, err := CallPlain(sym, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, int32(5), sum)
	})

	t.Run("strict mode rejects", func(t *testing.T) {
		lib, err := Open(path, WithStrictSignatures(true))
		require.NoError(t, err)
		defer func() { _ = lib.Close() }()

		_, err = Resolve[PlainFunc](lib, "untagged")
		assert.ErrorIs(t, err, bridgeerrors.ErrSignatureMismatch)
	})
}

func TestInvoke_AfterClose(t *testing.T) {
	// Given: a resolved symbol
	lib, err := Open(buildExternalDy(t))
	require.NoError(t, err)
	sym, err := Resolve[AddFunc](lib, "dyloading_add")
	require.NoError(t, err)

	// When: the library is closed
	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close(), "second close is a no-op")

	// Then: invoking fails deterministically without calling
	buf, err := buffer.New("Jack", buffer.DefaultCapacity)
	require.NoError(t, err)
	called := false
	err = sym.Invoke(func(AddFunc) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, bridgeerrors.ErrLibraryClosed)
	assert.False(t, called)

	_, err = CallAdd(sym, 8, 9, buf)
	assert.ErrorIs(t, err, bridgeerrors.ErrLibraryClosed)
	assert.Equal(t, "Jack", buf.String())

	_, err = Resolve[AddFunc](lib, "dyloading_add")
	assert.ErrorIs(t, err, bridgeerrors.ErrLibraryClosed)
	assert.True(t, lib.Closed())
	assert.False(t, lib.Has("dyloading_add"))
}

func TestInvoke_ConcurrentCallsAndClose(t *testing.T) {
	lib, err := Open(buildExternalDy(t))
	require.NoError(t, err)
	sym, err := Resolve[AddFunc](lib, "dyloading_add")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int32) {
			defer wg.Done()
			buf, err := buffer.New("Jack", buffer.DefaultCapacity)
			if err != nil {
				t.Error(err)
				return
			}
			sum, err := CallAdd(sym, n, 1, buf)
			if err != nil {
				// Close won the race; nothing was called.
				assert.ErrorIs(t, err, bridgeerrors.ErrLibraryClosed)
				return
			}
			assert.Equal(t, n+1, sum)
		}(int32(i))
	}
	require.NoError(t, lib.Close())
	wg.Wait()
}
