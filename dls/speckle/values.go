package speckle

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/spf13/cast"
)

// Float64s coerces v into a numeric sequence. v may be a single number or
// numeric string, or a slice or array of them. Booleans, nil elements and
// non-finite values are rejected.
func Float64s(v any) ([]float64, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrInvalidInput)
	}
	if fs, ok := v.([]float64); ok {
		out := make([]float64, len(fs))
		copy(out, fs)
		return finite(out)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]float64, rv.Len())
		for i := range out {
			f, err := toFloat64(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidInput, i, err)
			}
			out[i] = f
		}
		return finite(out)
	default:
		f, err := toFloat64(rv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		out := []float64{f}
		return finite(out)
	}
}

// toFloat64 converts numbers and numeric strings. cast maps bool and nil to
// 1 and 0, so only numeric and string kinds reach it.
func toFloat64(rv reflect.Value) (float64, error) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.String:
		return cast.ToFloat64E(rv.Interface())
	case reflect.Invalid:
		return 0, errors.New("nil value")
	default:
		return 0, fmt.Errorf("unsupported type %s", rv.Type())
	}
}

func finite(xs []float64) ([]float64, error) {
	if err := checkFinite(xs); err != nil {
		return nil, err
	}
	return xs, nil
}

func checkFinite(xs []float64) error {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite value %v at %d", ErrInvalidInput, x, i)
		}
	}
	return nil
}
