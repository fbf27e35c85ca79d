package packed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bitpak/errs"
)

func TestNew(t *testing.T) {
	t.Run("Valid widths", func(t *testing.T) {
		for width := 1; width <= 32; width++ {
			bits, err := New(width)
			require.NoError(t, err)
			require.Equal(t, width, bits.Width())
			require.Equal(t, 0, bits.Len())
			require.True(t, bits.IsEmpty())
		}
	})

	t.Run("Invalid widths", func(t *testing.T) {
		for _, width := range []int{0, -1, 33, 64} {
			_, err := New(width)
			require.Error(t, err)
			require.ErrorIs(t, err, errs.ErrInvalidBitWidth)
		}
	})
}

func TestBits_PushGet(t *testing.T) {
	t.Run("Basic operations", func(t *testing.T) {
		bits, err := New(5)
		require.NoError(t, err)

		require.NoError(t, bits.Push(31))
		require.NoError(t, bits.Push(10))
		require.NoError(t, bits.Push(0))

		require.Equal(t, 3, bits.Len())
		requireGet(t, bits, 0, 31)
		requireGet(t, bits, 1, 10)
		requireGet(t, bits, 2, 0)
	})

	t.Run("Round trip for every width", func(t *testing.T) {
		for width := 1; width <= 32; width++ {
			bits, err := New(width)
			require.NoError(t, err)

			var values []uint32
			if width == 32 {
				values = []uint32{0, 1, math.MaxUint32, math.MaxUint32 / 2, 12345}
			} else {
				maxVal := bits.MaxValue()
				values = []uint32{0, 1 % (maxVal + 1), maxVal, maxVal / 2, maxVal / 3}
			}

			for _, v := range values {
				require.NoError(t, bits.Push(v), "width %d value %d", width, v)
			}
			for i, v := range values {
				requireGet(t, bits, i, v)
			}
		}
	})

	t.Run("Get out of range", func(t *testing.T) {
		bits, err := New(4)
		require.NoError(t, err)
		require.NoError(t, bits.Push(7))

		_, ok := bits.Get(1)
		require.False(t, ok)
		_, ok = bits.Get(-1)
		require.False(t, ok)
	})
}

func TestBits_Boundaries(t *testing.T) {
	t.Run("Max value succeeds, max+1 fails", func(t *testing.T) {
		bits, err := New(5)
		require.NoError(t, err)

		require.NoError(t, bits.Push(31))

		err = bits.Push(32)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrValueOverflow)
		require.Equal(t, 1, bits.Len())
	})

	t.Run("Full 32-bit range", func(t *testing.T) {
		bits, err := New(32)
		require.NoError(t, err)

		require.NoError(t, bits.Push(math.MaxUint32))
		require.NoError(t, bits.Push(12345))

		requireGet(t, bits, 0, math.MaxUint32)
		requireGet(t, bits, 1, 12345)
	})

	t.Run("Set at len fails, at len-1 succeeds", func(t *testing.T) {
		bits, err := New(7)
		require.NoError(t, err)
		require.NoError(t, bits.Push(100))
		require.NoError(t, bits.Push(50))

		err = bits.Set(2, 1)
		require.ErrorIs(t, err, errs.ErrIndexOutOfBounds)

		require.NoError(t, bits.Set(1, 127))
		requireGet(t, bits, 1, 127)
	})
}

func TestBits_Set(t *testing.T) {
	t.Run("Overwrites exactly one element", func(t *testing.T) {
		bits, err := New(7)
		require.NoError(t, err)
		require.NoError(t, bits.Push(100))
		require.NoError(t, bits.Push(50))
		require.NoError(t, bits.Push(99))

		require.NoError(t, bits.Set(1, 127))

		requireGet(t, bits, 0, 100)
		requireGet(t, bits, 1, 127)
		requireGet(t, bits, 2, 99)
	})

	t.Run("Value overflow", func(t *testing.T) {
		bits, err := New(3)
		require.NoError(t, err)
		require.NoError(t, bits.Push(1))

		err = bits.Set(0, 8)
		require.ErrorIs(t, err, errs.ErrValueOverflow)
		requireGet(t, bits, 0, 1)
	})

	t.Run("Neighbors sharing bytes stay intact", func(t *testing.T) {
		bits, err := New(3)
		require.NoError(t, err)
		require.NoError(t, bits.ExtendFromSlice([]uint32{7, 0, 7, 0, 7}))

		require.NoError(t, bits.Set(2, 5))

		for i, want := range []uint32{7, 0, 5, 0, 7} {
			requireGet(t, bits, i, want)
		}
	})
}

func TestBits_ThreeBitScenario(t *testing.T) {
	bits, err := New(3)
	require.NoError(t, err)

	require.NoError(t, bits.ExtendFromSlice([]uint32{1, 2, 3, 4, 5}))

	require.Equal(t, 5, bits.Len())
	requireGet(t, bits, 2, 3)
	// 5 elements * 3 bits = 15 bits -> 2 bytes.
	require.Len(t, bits.Bytes(), 2)
}

func TestBits_SingleBit(t *testing.T) {
	bits, err := New(1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bits.Push(uint32(i%2)))
	}

	for i := 0; i < 10; i++ {
		requireGet(t, bits, i, uint32(i%2))
	}
}

func TestBits_FromBytes(t *testing.T) {
	t.Run("Valid buffer", func(t *testing.T) {
		bits, err := FromBytes(4, []byte{0b1011_1100, 0b0010_0011}, 4)
		require.NoError(t, err)
		require.Equal(t, 4, bits.Len())
		requireGet(t, bits, 0, 0b1100)
		requireGet(t, bits, 1, 0b1011)
	})

	t.Run("Insufficient bytes", func(t *testing.T) {
		_, err := FromBytes(8, []byte{1, 2}, 3)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInsufficientBytes)
	})
}

func TestBits_ClearAndCapacity(t *testing.T) {
	bits, err := WithCapacity(6, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, bits.Capacity(), 100)

	require.NoError(t, bits.ExtendFromSlice([]uint32{1, 2, 3}))
	bits.Clear()

	require.Equal(t, 0, bits.Len())
	require.True(t, bits.IsEmpty())

	// Reused capacity must not leak stale bits into new pushes.
	require.NoError(t, bits.Push(0))
	requireGet(t, bits, 0, 0)
}

func TestBits_Reserve(t *testing.T) {
	bits, err := New(12)
	require.NoError(t, err)

	bits.Reserve(50)
	require.GreaterOrEqual(t, bits.Capacity(), 50)

	require.NoError(t, bits.Push(0xABC))
	requireGet(t, bits, 0, 0xABC)
}

func TestBits_Iterators(t *testing.T) {
	bits, err := New(4)
	require.NoError(t, err)
	require.NoError(t, bits.ExtendFromSlice([]uint32{15, 8, 3}))

	var got []uint32
	for v := range bits.Values() {
		got = append(got, v)
	}
	require.Equal(t, []uint32{15, 8, 3}, got)

	var indices []int
	got = got[:0]
	for i, v := range bits.All() {
		indices = append(indices, i)
		got = append(got, v)
	}
	require.Equal(t, []int{0, 1, 2}, indices)
	require.Equal(t, []uint32{15, 8, 3}, got)

	// Early break must not panic and must stop the sequence.
	count := 0
	for range bits.Values() {
		count++
		break
	}
	require.Equal(t, 1, count)
}

func requireGet(t *testing.T, bits *Bits, index int, want uint32) {
	t.Helper()
	got, ok := bits.Get(index)
	require.True(t, ok, "index %d", index)
	require.Equal(t, want, got, "index %d", index)
}
