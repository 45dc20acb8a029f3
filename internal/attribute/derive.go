package attribute

import (
	"fmt"
	"math/cmplx"
)

// Transform reads or writes a derived attribute's raw slot in terms of its
// source attribute.
type Transform func(data *Value, source *Attribute)

// Derive registers a new dynamic attribute whose OnGet and OnSet actions
// read and write through the supplied transforms of the source value. The
// derived attribute's dependency list is exactly the source. Either
// transform may be nil for a one-way view.
func Derive(r *Registry, name string, kind Kind, source *Attribute, getter, setter Transform) (*Attribute, error) {
	derived, err := r.CreateDynamic(name, kind)
	if err != nil {
		return nil, err
	}
	deps := []Handle{source.Handle()}
	if setter != nil {
		if err := derived.AddAction(OnSet, Action{
			Update: func(data *Value) { setter(data, source) },
			Deps:   deps,
		}); err != nil {
			return nil, err
		}
	}
	if getter != nil {
		if err := derived.AddAction(OnGet, Action{
			Update: func(data *Value) { getter(data, source) },
			Deps:   deps,
		}); err != nil {
			return nil, err
		}
	}
	return derived, nil
}

func requireKind(source *Attribute, want Kind, op string) error {
	if source.Kind() != want {
		return fmt.Errorf("%s of %q: %w: source is %s, want %s",
			op, source.Name(), ErrTypeMismatch, source.Kind(), want)
	}
	return nil
}

// DeriveReal exposes the real part of a complex attribute as a real view.
// Writing the view replaces the source's real part and keeps its imaginary
// part.
func DeriveReal(r *Registry, name string, source *Attribute) (*Attribute, error) {
	if err := requireKind(source, KindComplex, "real view"); err != nil {
		return nil, err
	}
	return Derive(r, name, KindReal, source,
		func(data *Value, src *Attribute) {
			*data = real(src.Cmplx())
		},
		func(data *Value, src *Attribute) {
			src.MustSetCmplx(complex((*data).(float64), imag(src.Cmplx())))
		})
}

// DeriveImag exposes the imaginary part of a complex attribute as a real view.
func DeriveImag(r *Registry, name string, source *Attribute) (*Attribute, error) {
	if err := requireKind(source, KindComplex, "imag view"); err != nil {
		return nil, err
	}
	return Derive(r, name, KindReal, source,
		func(data *Value, src *Attribute) {
			*data = imag(src.Cmplx())
		},
		func(data *Value, src *Attribute) {
			src.MustSetCmplx(complex(real(src.Cmplx()), (*data).(float64)))
		})
}

// DeriveMag exposes the magnitude of a complex attribute. Writing the view
// rescales the source to the new magnitude at its current phase.
func DeriveMag(r *Registry, name string, source *Attribute) (*Attribute, error) {
	if err := requireKind(source, KindComplex, "magnitude view"); err != nil {
		return nil, err
	}
	return Derive(r, name, KindReal, source,
		func(data *Value, src *Attribute) {
			*data = cmplx.Abs(src.Cmplx())
		},
		func(data *Value, src *Attribute) {
			src.MustSetCmplx(cmplx.Rect((*data).(float64), cmplx.Phase(src.Cmplx())))
		})
}

// DerivePhase exposes the phase of a complex attribute in radians. Writing
// the view rotates the source to the new phase at its current magnitude.
func DerivePhase(r *Registry, name string, source *Attribute) (*Attribute, error) {
	if err := requireKind(source, KindComplex, "phase view"); err != nil {
		return nil, err
	}
	return Derive(r, name, KindReal, source,
		func(data *Value, src *Attribute) {
			*data = cmplx.Phase(src.Cmplx())
		},
		func(data *Value, src *Attribute) {
			c := src.Cmplx()
			src.MustSetCmplx(cmplx.Rect(cmplx.Abs(c), (*data).(float64)))
		})
}

// DeriveScaled exposes a real attribute scaled by a non-zero constant.
// get(derived) == scale * get(source) and set(derived, v) stores v / scale
// onto the source.
func DeriveScaled(r *Registry, name string, source *Attribute, scale float64) (*Attribute, error) {
	if err := requireKind(source, KindReal, "scaled view"); err != nil {
		return nil, err
	}
	return Derive(r, name, KindReal, source,
		func(data *Value, src *Attribute) {
			*data = scale * src.Real()
		},
		func(data *Value, src *Attribute) {
			src.MustSetReal((*data).(float64) / scale)
		})
}

// DeriveScaledCmplx is the complex-valued counterpart of DeriveScaled.
func DeriveScaledCmplx(r *Registry, name string, source *Attribute, scale complex128) (*Attribute, error) {
	if err := requireKind(source, KindComplex, "scaled view"); err != nil {
		return nil, err
	}
	return Derive(r, name, KindComplex, source,
		func(data *Value, src *Attribute) {
			*data = scale * src.Cmplx()
		},
		func(data *Value, src *Attribute) {
			src.MustSetCmplx((*data).(complex128) / scale)
		})
}

// DeriveCoeff exposes one coefficient of a vector attribute as a real view.
// Reads outside the current vector length yield 0; writes outside it are
// dropped.
func DeriveCoeff(r *Registry, name string, source *Attribute, index int) (*Attribute, error) {
	if err := requireKind(source, KindRealVector, "coefficient view"); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("coefficient view of %q: negative index %d", source.Name(), index)
	}
	return Derive(r, name, KindReal, source,
		func(data *Value, src *Attribute) {
			vec := src.RealVector()
			if index < len(vec) {
				*data = vec[index]
			} else {
				*data = float64(0)
			}
		},
		func(data *Value, src *Attribute) {
			vec := src.RealVector()
			if index >= len(vec) {
				return
			}
			out := make([]float64, len(vec))
			copy(out, vec)
			out[index] = (*data).(float64)
			if err := src.Set(out); err != nil {
				panic(err)
			}
		})
}
