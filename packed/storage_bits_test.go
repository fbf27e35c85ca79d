package packed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/storage"
)

func TestNewStorageBits(t *testing.T) {
	t.Run("Writes header into empty storage", func(t *testing.T) {
		store := storage.FromBuffer(nil)
		sb, err := NewStorageBits(6, store)
		require.NoError(t, err)

		require.Equal(t, 0, sb.Len())
		require.Equal(t, HeaderSize, store.Len())

		var hdr Header
		require.NoError(t, hdr.Parse(store.Bytes()))
		require.Equal(t, uint32(6), hdr.Width)
		require.Equal(t, uint32(0), hdr.Count)
	})

	t.Run("Invalid width", func(t *testing.T) {
		_, err := NewStorageBits(0, storage.FromBuffer(nil))
		require.ErrorIs(t, err, errs.ErrInvalidBitWidth)
	})
}

func TestStorageBits_PushGetSet(t *testing.T) {
	store := storage.FromBuffer(nil)
	sb, err := NewStorageBits(10, store)
	require.NoError(t, err)

	require.NoError(t, sb.Push(1023))
	require.NoError(t, sb.Push(512))
	require.NoError(t, sb.Push(0))
	require.Equal(t, 3, sb.Len())

	got, ok := sb.Get(1)
	require.True(t, ok)
	require.Equal(t, uint32(512), got)

	require.NoError(t, sb.Set(1, 77))
	got, ok = sb.Get(1)
	require.True(t, ok)
	require.Equal(t, uint32(77), got)

	// Header count must track mutations so reopen sees them.
	var hdr Header
	require.NoError(t, hdr.Parse(store.Bytes()))
	require.Equal(t, uint32(3), hdr.Count)
}

func TestOpenStorageBits(t *testing.T) {
	buildBlob := func(t *testing.T, width int, values []uint32) []byte {
		t.Helper()
		bits, err := New(width)
		require.NoError(t, err)
		require.NoError(t, bits.ExtendFromSlice(values))
		return bits.Marshal()
	}

	t.Run("Round trip through owned storage", func(t *testing.T) {
		blob := buildBlob(t, 9, []uint32{511, 0, 256})

		sb, err := OpenStorageBits(9, storage.FromCopy(blob))
		require.NoError(t, err)
		require.Equal(t, 3, sb.Len())

		got, ok := sb.Get(0)
		require.True(t, ok)
		require.Equal(t, uint32(511), got)
	})

	t.Run("Width mismatch", func(t *testing.T) {
		blob := buildBlob(t, 9, []uint32{1})

		_, err := OpenStorageBits(12, storage.FromCopy(blob))
		require.ErrorIs(t, err, errs.ErrBitWidthMismatch)
	})

	t.Run("Truncated payload", func(t *testing.T) {
		blob := buildBlob(t, 16, []uint32{1, 2, 3})

		_, err := OpenStorageBits(16, storage.FromCopy(blob[:len(blob)-2]))
		require.ErrorIs(t, err, errs.ErrInsufficientBytes)
	})

	t.Run("Read-only mapping rejects mutation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bits.pkbt")
		require.NoError(t, os.WriteFile(path, buildBlob(t, 5, []uint32{31, 2}), 0o644))

		store, err := storage.OpenRead(path)
		require.NoError(t, err)
		defer store.Close()

		sb, err := OpenStorageBits(5, store)
		require.NoError(t, err)

		got, ok := sb.Get(0)
		require.True(t, ok)
		require.Equal(t, uint32(31), got)

		require.ErrorIs(t, sb.Set(0, 1), errs.ErrUnsupportedOperation)
		require.ErrorIs(t, sb.Push(1), errs.ErrUnsupportedOperation)
	})

	t.Run("Read-write mapping allows in-place set but not push", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bits.pkbt")
		require.NoError(t, os.WriteFile(path, buildBlob(t, 8, []uint32{10, 20}), 0o644))

		store, err := storage.OpenReadWrite(path)
		require.NoError(t, err)
		defer store.Close()

		sb, err := OpenStorageBits(8, store)
		require.NoError(t, err)

		require.NoError(t, sb.Set(1, 200))
		got, ok := sb.Get(1)
		require.True(t, ok)
		require.Equal(t, uint32(200), got)

		require.ErrorIs(t, sb.Push(1), errs.ErrUnsupportedOperation)
	})
}

func TestStorageBits_FromStorage(t *testing.T) {
	// Headerless payload: element count derives from the buffer length.
	bits, err := New(4)
	require.NoError(t, err)
	require.NoError(t, bits.ExtendFromSlice([]uint32{1, 2, 3, 4}))

	sb, err := FromStorage(4, storage.FromCopy(bits.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 4, sb.Len())

	got, ok := sb.Get(3)
	require.True(t, ok)
	require.Equal(t, uint32(4), got)
}

func TestStorageBits_Clear(t *testing.T) {
	store := storage.FromBuffer(nil)
	sb, err := NewStorageBits(7, store)
	require.NoError(t, err)

	require.NoError(t, sb.Push(100))
	require.NoError(t, sb.Push(101))
	require.NoError(t, sb.Clear())

	require.Equal(t, 0, sb.Len())
	require.Equal(t, HeaderSize, store.Len())
}

func TestStorageBits_All(t *testing.T) {
	sb, err := NewStorageBits(3, storage.FromBuffer(nil))
	require.NoError(t, err)
	for _, v := range []uint32{1, 2, 3, 4, 5} {
		require.NoError(t, sb.Push(v))
	}

	var got []uint32
	for _, v := range sb.All() {
		got = append(got, v)
	}
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, got)
}
