package primitive

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-binder/optional"
)

type color string

type level uint8

func TestCoerce(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		to   reflect.Type
		want any
	}{
		{"assignable", "Zephyr", reflect.TypeFor[string](), "Zephyr"},
		{"nil is zero", nil, reflect.TypeFor[int](), 0},
		{"int64 to int", int64(8), reflect.TypeFor[int](), 8},
		{"int64 to bool", int64(1), reflect.TypeFor[bool](), true},
		{"zero to bool", int64(0), reflect.TypeFor[bool](), false},
		{"bytes to string", []byte("coast"), reflect.TypeFor[string](), "coast"},
		{"string to bytes", "coast", reflect.TypeFor[[]byte](), []byte("coast")},
		{"string to float", "1.5", reflect.TypeFor[float64](), 1.5},
		{"int to float32", int64(2), reflect.TypeFor[float32](), float32(2)},
		{"whole float to int", 3.0, reflect.TypeFor[int](), 3},
		{"string enum", "red", reflect.TypeFor[color](), color("red")},
		{"integer enum", int64(4), reflect.TypeFor[level](), level(4)},
		{"rfc3339 time", "2024-03-01T12:30:00Z", reflect.TypeFor[time.Time](), when},
		{"sqlite time", "2024-03-01 12:30:00", reflect.TypeFor[time.Time](), when},
		{"unix time", when.Unix(), reflect.TypeFor[time.Time](), when},
		{"duration string", "1m30s", reflect.TypeFor[time.Duration](), 90 * time.Second},
		{"duration nanos", int64(time.Second), reflect.TypeFor[time.Duration](), time.Second},
		{"wrap optional", "foo", reflect.TypeFor[optional.Value[string]](), optional.Of("foo")},
		{"wrap converted optional", int64(42), reflect.TypeFor[optional.Value[int]](), optional.Of(42)},
		{"nil optional", nil, reflect.TypeFor[optional.Value[int]](), optional.Empty[int]()},
		{"unwrap optional", optional.Of(int64(5)), reflect.TypeFor[int](), 5},
		{"empty optional", optional.Empty[string](), reflect.TypeFor[string](), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.in, tt.to)
			require.NoError(t, err)
			require.Equal(t, tt.to, got.Type())

			if diff := cmp.Diff(tt.want, got.Interface(), cmp.AllowUnexported(optional.Value[string]{}, optional.Value[int]{})); diff != "" {
				t.Errorf("Coerce(%v): -want, +got:\n%s", tt.in, diff)
			}
		})
	}
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		to   reflect.Type
	}{
		{"overflow", int64(300), reflect.TypeFor[int8]()},
		{"enum overflow", int64(256), reflect.TypeFor[level]()},
		{"float32 overflow", "1e40", reflect.TypeFor[float32]()},
		{"negative unsigned", int64(-1), reflect.TypeFor[uint]()},
		{"fractional int", 1.5, reflect.TypeFor[int]()},
		{"not a number", "eight", reflect.TypeFor[int]()},
		{"struct target", int64(1), reflect.TypeFor[struct{}]()},
		{"number to string", int64(1), reflect.TypeFor[string]()},
		{"bad time", "yesterday", reflect.TypeFor[time.Time]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.in, tt.to)
			assert.Error(t, err)
		})
	}
}

func TestKindEnum(t *testing.T) {
	assert.True(t, KindUint16.IsInteger())
	assert.True(t, KindUint16.IsUnsigned())
	assert.False(t, KindUint16.IsSigned())
	assert.True(t, KindFloat32.IsNumber())
	assert.False(t, KindString.IsNumber())
	assert.False(t, KindInvalid.IsNumber())
	assert.Equal(t, 16, KindInt16.Bits())
	assert.Equal(t, 32, KindFloat32.Bits())
	assert.Panics(t, func() { KindTime.Bits() })

	for k := KindInvalid; k < KindEnum(KindTotal); k++ {
		assert.NotContains(t, k.String(), "KindEnum(")
	}

	assert.Equal(t, "KindEnum(19)", KindEnum(KindTotal).String())
}

func TestFromReflectType(t *testing.T) {
	type ratio float64
	type empty struct{}

	tests := []struct {
		typ            reflect.Type
		kind, resolved KindEnum
	}{
		{reflect.TypeFor[int](), KindInt, KindInt},
		{reflect.TypeFor[string](), KindString, KindString},
		{reflect.TypeFor[[]byte](), KindBytes, KindBytes},
		{reflect.TypeFor[time.Time](), KindTime, KindTime},
		{reflect.TypeFor[time.Duration](), KindDuration, KindDuration},
		{reflect.TypeFor[color](), KindPrimitiveEnum, KindString},
		{reflect.TypeFor[level](), KindPrimitiveEnum, KindUint8},
		{reflect.TypeFor[ratio](), KindInvalid, KindInvalid},
		{reflect.TypeFor[empty](), KindInvalid, KindInvalid},
		{reflect.TypeFor[*int](), KindInvalid, KindInvalid},
		{nil, KindInvalid, KindInvalid},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.kind, FromReflectType(tt.typ))
			assert.Equal(t, tt.resolved, Underlying(tt.typ))
		})
	}

	assert.Equal(t, "KindInvalid", FromReflectType(reflect.TypeFor[empty]()).String())
}
