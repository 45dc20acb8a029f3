package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem(t *testing.T) {
	t.Run("rejects non-positive dimension", func(t *testing.T) {
		_, err := New(0)
		require.Error(t, err)
		_, err = New(-3)
		require.Error(t, err)
	})

	t.Run("stamps accumulate", func(t *testing.T) {
		sys, err := New(2)
		require.NoError(t, err)
		defer sys.Destroy()

		sys.AddMatrix(0, 0, 1.5)
		sys.AddMatrix(0, 0, 0.5)
		sys.AddRightSide(1, 2.0)
		sys.AddRightSide(1, -0.5)

		assert.InDelta(t, 2.0, sys.At(0, 0), 1e-12)
		assert.InDelta(t, 1.5, sys.RightSideAt(1), 1e-12)
	})

	t.Run("ground stamps are discarded", func(t *testing.T) {
		sys, err := New(2)
		require.NoError(t, err)
		defer sys.Destroy()

		sys.AddMatrix(Ground, 0, 5.0)
		sys.AddMatrix(0, Ground, 5.0)
		sys.AddRightSide(Ground, 5.0)

		assert.Zero(t, sys.At(0, 0))
		assert.Zero(t, sys.At(Ground, 0))
		assert.Zero(t, sys.RightSideAt(Ground))
	})

	t.Run("clear zeroes matrix and right side", func(t *testing.T) {
		sys, err := New(2)
		require.NoError(t, err)
		defer sys.Destroy()

		sys.AddMatrix(0, 1, 3.0)
		sys.AddRightSide(0, 3.0)
		sys.Clear()

		assert.Zero(t, sys.At(0, 1))
		assert.Zero(t, sys.RightSideAt(0))
	})

	t.Run("solves a definite system", func(t *testing.T) {
		// | 2 -1 | x = | 1 |
		// |-1  2 |     | 0 |
		sys, err := New(2)
		require.NoError(t, err)
		defer sys.Destroy()

		sys.AddMatrix(0, 0, 2)
		sys.AddMatrix(0, 1, -1)
		sys.AddMatrix(1, 0, -1)
		sys.AddMatrix(1, 1, 2)
		sys.AddRightSide(0, 1)

		x, err := sys.Solve()
		require.NoError(t, err)
		require.Len(t, x, 2)
		assert.InDelta(t, 2.0/3.0, x[0], 1e-9)
		assert.InDelta(t, 1.0/3.0, x[1], 1e-9)
	})

	t.Run("re-stamp and re-solve", func(t *testing.T) {
		sys, err := New(1)
		require.NoError(t, err)
		defer sys.Destroy()

		sys.AddMatrix(0, 0, 4)
		sys.AddRightSide(0, 2)
		x, err := sys.Solve()
		require.NoError(t, err)
		assert.InDelta(t, 0.5, x[0], 1e-12)

		sys.Clear()
		sys.AddMatrix(0, 0, 8)
		sys.AddRightSide(0, 2)
		x, err = sys.Solve()
		require.NoError(t, err)
		assert.InDelta(t, 0.25, x[0], 1e-12)
	})

	t.Run("singular system is an error", func(t *testing.T) {
		sys, err := New(2)
		require.NoError(t, err)
		defer sys.Destroy()

		// Row 1 is all zero.
		sys.AddMatrix(0, 0, 1)
		sys.AddRightSide(1, 1)

		_, err = sys.Solve()
		require.Error(t, err)
	})
}
