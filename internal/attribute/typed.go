package attribute

import "fmt"

// Typed accessors. A kind mismatch here is a programming or configuration
// error, never a runtime data error, and must not be caught and retried;
// these panic accordingly. Code applying values of uncertain kind (the
// realtime interface delivery path) must go through Set, which returns
// ErrTypeMismatch instead.

func (a *Attribute) typedPanic(want Kind) string {
	return fmt.Sprintf("attribute %q holds %s, accessed as %s", a.name, a.kind, want)
}

// Real returns the value of a real-kind attribute.
func (a *Attribute) Real() float64 {
	v, ok := a.Get().(float64)
	if !ok {
		panic(a.typedPanic(KindReal))
	}
	return v
}

// Cmplx returns the value of a complex-kind attribute.
func (a *Attribute) Cmplx() complex128 {
	v, ok := a.Get().(complex128)
	if !ok {
		panic(a.typedPanic(KindComplex))
	}
	return v
}

// Int returns the value of an int-kind attribute.
func (a *Attribute) Int() int {
	v, ok := a.Get().(int)
	if !ok {
		panic(a.typedPanic(KindInt))
	}
	return v
}

// Bool returns the value of a bool-kind attribute.
func (a *Attribute) Bool() bool {
	v, ok := a.Get().(bool)
	if !ok {
		panic(a.typedPanic(KindBool))
	}
	return v
}

// Str returns the value of a string-kind attribute.
func (a *Attribute) Str() string {
	v, ok := a.Get().(string)
	if !ok {
		panic(a.typedPanic(KindString))
	}
	return v
}

// RealVector returns the value of a vector-kind attribute. The returned
// slice is the live backing storage; callers that hand it across a
// goroutine boundary must copy it first.
func (a *Attribute) RealVector() []float64 {
	v, ok := a.Get().([]float64)
	if !ok {
		panic(a.typedPanic(KindRealVector))
	}
	return v
}

// MustSetReal stores a real payload, panicking on kind mismatch.
func (a *Attribute) MustSetReal(v float64) {
	if err := a.Set(v); err != nil {
		panic(err)
	}
}

// MustSetCmplx stores a complex payload, panicking on kind mismatch.
func (a *Attribute) MustSetCmplx(v complex128) {
	if err := a.Set(v); err != nil {
		panic(err)
	}
}
