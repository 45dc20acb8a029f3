package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicate names", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Create("r1.v", 1.0)
		require.NoError(t, err)

		_, err = reg.Create("r1.v", 2.0)
		require.ErrorIs(t, err, ErrDuplicateName)

		_, err = reg.CreateDynamic("r1.v", KindReal)
		require.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("lookup and handles are stable", func(t *testing.T) {
		reg := NewRegistry()
		a, err := reg.Create("a", 1.0)
		require.NoError(t, err)
		b, err := reg.Create("b", 2.0)
		require.NoError(t, err)

		got, ok := reg.Lookup("a")
		require.True(t, ok)
		assert.Same(t, a, got)

		_, ok = reg.Lookup("missing")
		assert.False(t, ok)

		assert.Same(t, a, reg.ByHandle(a.Handle()))
		assert.Same(t, b, reg.ByHandle(b.Handle()))
		assert.Equal(t, []string{"a", "b"}, reg.Names())
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("foreign handle panics", func(t *testing.T) {
		reg := NewRegistry()
		assert.Panics(t, func() { reg.ByHandle(Handle(7)) })
		assert.Panics(t, func() { reg.ByHandle(NoHandle) })
	})

	t.Run("rejects unsupported payload type", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Create("bad", float32(1))
		require.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestStaticAttribute(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.Create("r1.R", 100.0)
	require.NoError(t, err)

	t.Run("get returns stored value", func(t *testing.T) {
		assert.Equal(t, 100.0, a.Get())
		assert.True(t, a.IsStatic())
	})

	t.Run("set replaces value", func(t *testing.T) {
		require.NoError(t, a.Set(50.0))
		assert.Equal(t, 50.0, a.Get())
	})

	t.Run("wrong kind keeps previous value", func(t *testing.T) {
		err := a.Set("not a resistance")
		require.ErrorIs(t, err, ErrTypeMismatch)
		assert.Equal(t, 50.0, a.Get())
	})

	t.Run("actions are rejected", func(t *testing.T) {
		err := a.AddAction(OnGet, Action{Update: func(*Value) {}})
		require.ErrorIs(t, err, ErrStatic)
	})

	t.Run("rebinding is rejected", func(t *testing.T) {
		src, err := reg.Create("src", 1.0)
		require.NoError(t, err)
		require.ErrorIs(t, a.SetReference(src), ErrStatic)
	})
}

func TestDynamicAttribute(t *testing.T) {
	t.Run("on-get actions run in registration order", func(t *testing.T) {
		reg := NewRegistry()
		a, err := reg.CreateDynamic("d", KindReal)
		require.NoError(t, err)

		require.NoError(t, a.AddAction(OnGet, Action{
			Update: func(data *Value) { *data = 1.0 },
		}))
		require.NoError(t, a.AddAction(OnGet, Action{
			Update: func(data *Value) { *data = (*data).(float64) + 10 },
		}))

		assert.Equal(t, 11.0, a.Get())
	})

	t.Run("on-set actions observe the stored value", func(t *testing.T) {
		reg := NewRegistry()
		a, err := reg.CreateDynamic("d", KindReal)
		require.NoError(t, err)

		var seen float64
		require.NoError(t, a.AddAction(OnSet, Action{
			Update: func(data *Value) { seen = (*data).(float64) },
		}))

		require.NoError(t, a.Set(3.5))
		assert.Equal(t, 3.5, seen)
	})

	t.Run("unknown trigger is rejected", func(t *testing.T) {
		reg := NewRegistry()
		a, err := reg.CreateDynamic("d", KindReal)
		require.NoError(t, err)
		err = a.AddAction(Trigger(42), Action{Update: func(*Value) {}})
		require.ErrorIs(t, err, ErrUnknownTrigger)
	})

	t.Run("clear removes all actions", func(t *testing.T) {
		reg := NewRegistry()
		a, err := reg.CreateDynamic("d", KindReal)
		require.NoError(t, err)
		require.NoError(t, a.AddAction(OnGet, Action{
			Update: func(data *Value) { *data = 99.0 },
			Deps:   []Handle{Handle(0)},
		}))

		a.ClearActions()
		assert.Equal(t, 0.0, a.Get())
		assert.Empty(t, a.Dependencies())
	})
}

func TestSetReference(t *testing.T) {
	t.Run("static source realized once, later writes stay visible", func(t *testing.T) {
		reg := NewRegistry()
		src, err := reg.Create("src", 5.0)
		require.NoError(t, err)
		dst, err := reg.CreateDynamic("dst", KindReal)
		require.NoError(t, err)

		require.NoError(t, dst.SetReference(src))
		assert.Equal(t, 5.0, dst.Get())

		// The binding aliases storage, so a later source write is seen
		// without any action firing again.
		require.NoError(t, src.Set(7.0))
		assert.Equal(t, 7.0, dst.Get())
	})

	t.Run("dynamic source re-read on every get", func(t *testing.T) {
		reg := NewRegistry()
		src, err := reg.CreateDynamic("src", KindReal)
		require.NoError(t, err)
		calls := 0
		require.NoError(t, src.AddAction(OnGet, Action{
			Update: func(data *Value) {
				calls++
				*data = float64(calls)
			},
		}))
		dst, err := reg.CreateDynamic("dst", KindReal)
		require.NoError(t, err)

		require.NoError(t, dst.SetReference(src))
		assert.Equal(t, 1.0, dst.Get())
		assert.Equal(t, 2.0, dst.Get())
		assert.Equal(t, 2, calls)
	})

	t.Run("rebinding to a dynamic source detaches the old static slot", func(t *testing.T) {
		reg := NewRegistry()
		static, err := reg.Create("static", 5.0)
		require.NoError(t, err)
		dyn, err := reg.CreateDynamic("dyn", KindReal)
		require.NoError(t, err)
		require.NoError(t, dyn.AddAction(OnGet, Action{
			Update: func(data *Value) { *data = 42.0 },
		}))
		dst, err := reg.CreateDynamic("dst", KindReal)
		require.NoError(t, err)

		require.NoError(t, dst.SetReference(static))
		require.NoError(t, dst.SetReference(dyn))

		// Reads and writes through the rebound attribute must not land in
		// the former source's storage.
		assert.Equal(t, 42.0, dst.Get())
		assert.Equal(t, 5.0, static.Real())

		require.NoError(t, dst.Set(9.0))
		assert.Equal(t, 5.0, static.Real())
	})

	t.Run("static binding is realized at the bind call", func(t *testing.T) {
		reg := NewRegistry()
		src, err := reg.Create("src", 3.0)
		require.NoError(t, err)
		dst, err := reg.CreateDynamic("dst", KindReal)
		require.NoError(t, err)

		require.NoError(t, dst.SetReference(src))

		// No lazy work remains after binding: the realized binding lives on
		// the once list and Get runs no actions.
		assert.Empty(t, dst.onGet)
		require.Len(t, dst.onOnce, 1)
		assert.Equal(t, []Handle{src.Handle()}, dst.onOnce[0].Deps)
		assert.Equal(t, 3.0, dst.Get())
	})

	t.Run("rebinding clears prior actions, last binding wins", func(t *testing.T) {
		reg := NewRegistry()
		first, err := reg.Create("first", 1.0)
		require.NoError(t, err)
		second, err := reg.Create("second", 2.0)
		require.NoError(t, err)
		dst, err := reg.CreateDynamic("dst", KindReal)
		require.NoError(t, err)

		require.NoError(t, dst.SetReference(first))
		require.NoError(t, dst.SetReference(second))

		assert.Equal(t, 2.0, dst.Get())
		assert.Equal(t, []Handle{second.Handle()}, dst.Dependencies())
	})

	t.Run("kind mismatch is rejected", func(t *testing.T) {
		reg := NewRegistry()
		src, err := reg.Create("src", complex(1, 0))
		require.NoError(t, err)
		dst, err := reg.CreateDynamic("dst", KindReal)
		require.NoError(t, err)
		require.ErrorIs(t, dst.SetReference(src), ErrTypeMismatch)
	})
}

func TestDependencies(t *testing.T) {
	reg := NewRegistry()
	x, err := reg.Create("x", 1.0)
	require.NoError(t, err)
	y, err := reg.Create("y", 2.0)
	require.NoError(t, err)
	d, err := reg.CreateDynamic("d", KindReal)
	require.NoError(t, err)

	require.NoError(t, d.AddAction(OnGet, Action{
		Update: func(data *Value) { *data = x.Real() + y.Real() },
		Deps:   []Handle{x.Handle(), y.Handle()},
	}))
	// OnSet deps do not contribute to the read-dependency list.
	require.NoError(t, d.AddAction(OnSet, Action{
		Update: func(*Value) {},
		Deps:   []Handle{x.Handle()},
	}))

	assert.Equal(t, []Handle{x.Handle(), y.Handle()}, d.Dependencies())
	assert.Equal(t, 3.0, d.Get())
}

func TestTypedAccessors(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.Create("a", 2.5)
	require.NoError(t, err)

	t.Run("matching kind returns value", func(t *testing.T) {
		assert.Equal(t, 2.5, a.Real())
	})

	t.Run("mismatched kind panics", func(t *testing.T) {
		assert.Panics(t, func() { a.Cmplx() })
		assert.Panics(t, func() { a.Int() })
	})

	t.Run("must-set panics on mismatch", func(t *testing.T) {
		assert.Panics(t, func() { a.MustSetCmplx(complex(1, 1)) })
		assert.NotPanics(t, func() { a.MustSetReal(3.0) })
		assert.Equal(t, 3.0, a.Real())
	})
}

func TestString(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.Create("a", 1.5)
	require.NoError(t, err)
	assert.Equal(t, "1.5", a.String())

	c, err := reg.Create("c", complex(1, -2))
	require.NoError(t, err)
	assert.Equal(t, "1-2i", c.String())

	v, err := reg.Create("v", []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "vector(3)", v.String())
}
