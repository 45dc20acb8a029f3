package attribute

import (
	"fmt"
	"strconv"
)

// Kind identifies the value kind held by an attribute. The set of kinds is
// closed: every transform and every wire codec switches over it exhaustively.
type Kind uint8

const (
	KindReal Kind = iota
	KindComplex
	KindInt
	KindBool
	KindString
	KindRealVector
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindComplex:
		return "complex"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindRealVector:
		return "realvector"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an attribute payload. The supported dynamic types are float64,
// complex128, int, bool, string and []float64.
type Value any

// KindOf reports the kind of a payload, or an error for unsupported types.
func KindOf(v Value) (Kind, error) {
	switch v.(type) {
	case float64:
		return KindReal, nil
	case complex128:
		return KindComplex, nil
	case int:
		return KindInt, nil
	case bool:
		return KindBool, nil
	case string:
		return KindString, nil
	case []float64:
		return KindRealVector, nil
	default:
		return 0, fmt.Errorf("%w: unsupported payload type %T", ErrTypeMismatch, v)
	}
}

// ZeroValue returns the zero payload for a kind.
func ZeroValue(k Kind) Value {
	switch k {
	case KindReal:
		return float64(0)
	case KindComplex:
		return complex128(0)
	case KindInt:
		return int(0)
	case KindBool:
		return false
	case KindString:
		return ""
	case KindRealVector:
		return []float64(nil)
	default:
		return nil
	}
}

// CopyValue returns a payload safe to hand across goroutines. Only vector
// payloads carry shared backing storage.
func CopyValue(v Value) Value {
	if vec, ok := v.([]float64); ok {
		out := make([]float64, len(vec))
		copy(out, vec)
		return out
	}
	return v
}

func formatValue(v Value) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'g', 6, 64)
	case complex128:
		return fmt.Sprintf("%.6g%+.6gi", real(t), imag(t))
	case []float64:
		return fmt.Sprintf("vector(%d)", len(t))
	default:
		return fmt.Sprint(t)
	}
}
