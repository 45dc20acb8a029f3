package attribute

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRealImag(t *testing.T) {
	reg := NewRegistry()
	src, err := reg.Create("z", complex(3.0, 4.0))
	require.NoError(t, err)

	re, err := DeriveReal(reg, "z.real", src)
	require.NoError(t, err)
	im, err := DeriveImag(reg, "z.imag", src)
	require.NoError(t, err)

	assert.Equal(t, 3.0, re.Get())
	assert.Equal(t, 4.0, im.Get())

	t.Run("writing one part keeps the other", func(t *testing.T) {
		require.NoError(t, re.Set(-1.0))
		assert.Equal(t, complex(-1.0, 4.0), src.Cmplx())

		require.NoError(t, im.Set(2.0))
		assert.Equal(t, complex(-1.0, 2.0), src.Cmplx())
	})

	t.Run("source writes flow through", func(t *testing.T) {
		require.NoError(t, src.Set(complex(8.0, 9.0)))
		assert.Equal(t, 8.0, re.Get())
		assert.Equal(t, 9.0, im.Get())
	})

	t.Run("dependency list is the source", func(t *testing.T) {
		assert.Equal(t, []Handle{src.Handle()}, re.Dependencies())
	})
}

func TestDeriveMagPhase(t *testing.T) {
	reg := NewRegistry()
	src, err := reg.Create("z", complex(3.0, 4.0))
	require.NoError(t, err)

	mag, err := DeriveMag(reg, "z.mag", src)
	require.NoError(t, err)
	phase, err := DerivePhase(reg, "z.phase", src)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, mag.Real(), 1e-12)
	assert.InDelta(t, math.Atan2(4, 3), phase.Real(), 1e-12)

	t.Run("writing magnitude keeps phase", func(t *testing.T) {
		require.NoError(t, mag.Set(10.0))
		assert.InDelta(t, 6.0, real(src.Cmplx()), 1e-12)
		assert.InDelta(t, 8.0, imag(src.Cmplx()), 1e-12)
	})

	t.Run("writing phase keeps magnitude", func(t *testing.T) {
		require.NoError(t, phase.Set(0.0))
		assert.InDelta(t, 10.0, real(src.Cmplx()), 1e-12)
		assert.InDelta(t, 0.0, imag(src.Cmplx()), 1e-12)
	})
}

func TestDeriveScaled(t *testing.T) {
	reg := NewRegistry()
	src, err := reg.Create("v", 230.0)
	require.NoError(t, err)

	kv, err := DeriveScaled(reg, "v.kilo", src, 1e-3)
	require.NoError(t, err)

	assert.InDelta(t, 0.23, kv.Real(), 1e-12)

	t.Run("set stores value divided by scale", func(t *testing.T) {
		require.NoError(t, kv.Set(1.0))
		assert.InDelta(t, 1000.0, src.Real(), 1e-9)
		assert.InDelta(t, 1.0, kv.Real(), 1e-12)
	})

	t.Run("complex counterpart", func(t *testing.T) {
		zsrc, err := reg.Create("z", complex(2.0, 2.0))
		require.NoError(t, err)
		scaled, err := DeriveScaledCmplx(reg, "z.scaled", zsrc, complex(0, 1))
		require.NoError(t, err)

		assert.Equal(t, complex(-2.0, 2.0), scaled.Cmplx())
		require.NoError(t, scaled.Set(complex(0, 4.0)))
		assert.Equal(t, complex(4.0, 0), zsrc.Cmplx())
	})

	t.Run("wrong source kind rejected", func(t *testing.T) {
		zsrc, ok := reg.Lookup("z")
		require.True(t, ok)
		_, err := DeriveScaled(reg, "bad", zsrc, 2.0)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestDeriveCoeff(t *testing.T) {
	reg := NewRegistry()
	src, err := reg.Create("sol", []float64{1.0, 2.0, 3.0})
	require.NoError(t, err)

	c1, err := DeriveCoeff(reg, "sol.1", src, 1)
	require.NoError(t, err)

	assert.Equal(t, 2.0, c1.Real())

	t.Run("write replaces only the indexed coefficient", func(t *testing.T) {
		require.NoError(t, c1.Set(20.0))
		assert.Equal(t, []float64{1.0, 20.0, 3.0}, src.RealVector())
	})

	t.Run("source writes flow through", func(t *testing.T) {
		require.NoError(t, src.Set([]float64{5.0, 6.0, 7.0}))
		assert.Equal(t, 6.0, c1.Real())
	})

	t.Run("out of range reads yield zero, writes are dropped", func(t *testing.T) {
		c9, err := DeriveCoeff(reg, "sol.9", src, 9)
		require.NoError(t, err)
		assert.Equal(t, 0.0, c9.Real())

		require.NoError(t, c9.Set(42.0))
		assert.Equal(t, []float64{5.0, 6.0, 7.0}, src.RealVector())
	})

	t.Run("negative index rejected", func(t *testing.T) {
		_, err := DeriveCoeff(reg, "sol.neg", src, -1)
		require.Error(t, err)
	})
}
