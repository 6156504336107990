package primitive

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"property-binder/optional"
)

// ErrUnsupported is returned when a value cannot be converted to the
// requested type.
var ErrUnsupported = errors.New("unsupported conversion")

// TimeLayouts are tried in order when a string is coerced to time.Time.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Coerce converts v to type to. A nil v yields the zero value. Values of
// optional.Value types are unwrapped before conversion, and a target that is
// an optional.Value receives the converted element wrapped as present.
func Coerce(v any, to reflect.Type) (reflect.Value, error) {
	inner, isOpt, present := optional.Unwrap(v)
	if isOpt {
		if !present {
			return reflect.Zero(to), nil
		}

		v = inner
	}

	if v == nil {
		return reflect.Zero(to), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(to) {
		return rv, nil
	}

	if elem, ok := optional.ElemType(to); ok {
		ev, err := Coerce(v, elem)
		if err != nil {
			return reflect.Value{}, err
		}

		wrapped, _ := optional.Wrap(to, ev)

		return wrapped, nil
	}

	out := reflect.New(to).Elem()

	var err error

	switch FromReflectType(to) {
	case KindTime:
		err = setTime(out, rv)
	case KindDuration:
		err = setDuration(out, rv)
	case KindBytes:
		err = setBytes(out, rv)
	case KindInvalid:
		err = ErrUnsupported
	default:
		err = setScalar(out, rv)
	}

	if err != nil {
		return reflect.Value{}, errors.Wrapf(err, "coerce %s to %s", rv.Type(), to)
	}

	return out, nil
}

func setScalar(out, rv reflect.Value) error {
	k := Underlying(out.Type())

	switch {
	case k.IsNumber():
		return setNumber(out, rv, k)
	case k == KindBool:
		b, err := toBool(rv)
		if err != nil {
			return err
		}

		out.SetBool(b)
	case k == KindString:
		s, err := toString(rv)
		if err != nil {
			return err
		}

		out.SetString(s)
	default:
		return ErrUnsupported
	}

	return nil
}

func setNumber(out, rv reflect.Value, k KindEnum) error {
	if k.IsFloat() {
		f, err := toFloat(rv, k.Bits())
		if err != nil {
			return err
		}

		if out.OverflowFloat(f) {
			return errors.Errorf("%g overflows %s", f, out.Type())
		}

		out.SetFloat(f)

		return nil
	}

	n, err := toInt(rv)
	if err != nil {
		return err
	}

	if k.IsUnsigned() {
		if n < 0 || out.OverflowUint(uint64(n)) {
			return errors.Errorf("%d overflows %s", n, out.Type())
		}

		out.SetUint(uint64(n))

		return nil
	}

	if out.OverflowInt(n) {
		return errors.Errorf("%d overflows %s", n, out.Type())
	}

	out.SetInt(n)

	return nil
}

func toInt(rv reflect.Value) (int64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return 0, errors.Errorf("%g is not an integer", f)
		}

		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}

		return 0, nil
	}

	s, err := toString(rv)
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func toFloat(rv reflect.Value, bits int) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}

	s, err := toString(rv)
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(strings.TrimSpace(s), bits)
}

func toBool(rv reflect.Value) (bool, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(rv)
		return n != 0, err
	}

	s, err := toString(rv)
	if err != nil {
		return false, err
	}

	return strconv.ParseBool(strings.TrimSpace(s))
}

func toString(rv reflect.Value) (string, error) {
	switch {
	case rv.Kind() == reflect.String:
		return rv.String(), nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return string(rv.Bytes()), nil
	default:
		return "", ErrUnsupported
	}
}

func setBytes(out, rv reflect.Value) error {
	s, err := toString(rv)
	if err != nil {
		return err
	}

	out.SetBytes([]byte(s))

	return nil
}

func setTime(out, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.Set(reflect.ValueOf(time.Unix(rv.Int(), 0).UTC()))
		return nil
	}

	s, err := toString(rv)
	if err != nil {
		return err
	}

	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			out.Set(reflect.ValueOf(t))
			return nil
		}
	}

	return errors.Errorf("%q matches no known time layout", s)
}

func setDuration(out, rv reflect.Value) error {
	if rv.Kind() == reflect.String || rv.Kind() == reflect.Slice {
		s, err := toString(rv)
		if err != nil {
			return err
		}

		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return err
		}

		out.SetInt(int64(d))

		return nil
	}

	n, err := toInt(rv)
	if err != nil {
		return err
	}

	out.SetInt(n)

	return nil
}
