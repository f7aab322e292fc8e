package field

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ToStorage converts a Go value into the value bound to a statement parameter
// for a column of type t. Nil values and nil pointers become nil.
func ToStorage(v any, t Type) (any, error) {
	v, ok := indirect(v)
	if !ok {
		return nil, nil
	}
	switch t {
	case TypeUUID:
		return uuidValue(v)
	case TypeTime:
		tv, ok := v.(time.Time)
		if !ok {
			return nil, conversionError(v, t)
		}
		return tv.UTC(), nil
	case TypePacked:
		b, err := msgpack.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field: pack %T: %w", v, err)
		}
		return b, nil
	}
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		if err != nil {
			return nil, fmt.Errorf("field: value of %T: %w", v, err)
		}
		if dv == nil {
			return nil, nil
		}
		v = dv
	}
	switch t {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case TypeInt64:
		return toInt64(v)
	case TypeFloat64:
		return toFloat64(v)
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case TypeBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	}
	return nil, conversionError(v, t)
}

// FromStorage normalizes a value returned by a driver into the canonical Go
// value of type t: bool, int64, float64, string, time.Time, uuid.UUID or
// []byte (for TypeBytes and TypePacked).
func FromStorage(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeBool:
		switch v := v.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case int:
			return v != 0, nil
		case []byte:
			return strconv.ParseBool(string(v))
		case string:
			return strconv.ParseBool(v)
		}
	case TypeInt64:
		switch v := v.(type) {
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		case string:
			return strconv.ParseInt(v, 10, 64)
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return toInt64(v)
	case TypeFloat64:
		switch v := v.(type) {
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		case string:
			return strconv.ParseFloat(v, 64)
		}
		return toFloat64(v)
	case TypeString:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case TypeTime:
		switch v := v.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			return parseTime(v)
		case []byte:
			return parseTime(string(v))
		case int64:
			return time.Unix(v, 0).UTC(), nil
		}
	case TypeUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			return uuid.Parse(v)
		case []byte:
			if len(v) == 16 {
				return uuid.FromBytes(v)
			}
			return uuid.ParseBytes(v)
		}
	case TypeBytes, TypePacked:
		switch v := v.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
	}
	return nil, conversionError(v, t)
}

// Assign writes a canonical value, as returned by FromStorage, through the
// pointer dst. Nil clears the destination.
func Assign(dst, v any) error {
	switch d := dst.(type) {
	case *bool:
		if b, ok := v.(bool); ok {
			*d = b
			return nil
		}
	case *int64:
		if i, ok := v.(int64); ok {
			*d = i
			return nil
		}
	case *int:
		if i, ok := v.(int64); ok {
			*d = int(i)
			return nil
		}
	case *float64:
		if f, ok := v.(float64); ok {
			*d = f
			return nil
		}
	case *string:
		if s, ok := v.(string); ok {
			*d = s
			return nil
		}
	case *time.Time:
		if tv, ok := v.(time.Time); ok {
			*d = tv
			return nil
		}
	case *uuid.UUID:
		if u, ok := v.(uuid.UUID); ok {
			*d = u
			return nil
		}
	case *[]byte:
		if b, ok := v.([]byte); ok {
			*d = b
			return nil
		}
	}
	return assignValue(dst, v)
}

// assignValue is the general path of Assign for pointers, named types and
// packed values.
func assignValue(dst, v any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("field: assign destination %T is not a non-nil pointer", dst)
	}
	elem := rv.Elem()
	if v == nil {
		elem.SetZero()
		return nil
	}
	if elem.Kind() == reflect.Pointer {
		ptr := reflect.New(elem.Type().Elem())
		if err := Assign(ptr.Interface(), v); err != nil {
			return err
		}
		elem.Set(ptr)
		return nil
	}
	if b, ok := v.([]byte); ok && typeOf(elem.Type()) == TypePacked {
		if err := msgpack.Unmarshal(b, dst); err != nil {
			return fmt.Errorf("field: unpack into %T: %w", dst, err)
		}
		return nil
	}
	switch elem.Kind() {
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			elem.SetBool(b)
			return nil
		}
	case reflect.String:
		if s, ok := v.(string); ok {
			elem.SetString(s)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := v.(int64); ok {
			if elem.OverflowInt(i) {
				return fmt.Errorf("field: %d overflows %s", i, elem.Type())
			}
			elem.SetInt(i)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := v.(int64); ok {
			if i < 0 || elem.OverflowUint(uint64(i)) {
				return fmt.Errorf("field: %d overflows %s", i, elem.Type())
			}
			elem.SetUint(uint64(i))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := v.(float64); ok {
			elem.SetFloat(f)
			return nil
		}
	}
	rvv := reflect.ValueOf(v)
	if rvv.Type().AssignableTo(elem.Type()) {
		elem.Set(rvv)
		return nil
	}
	return fmt.Errorf("field: cannot assign %T to %T", v, dst)
}

// Key returns a comparable value identifying v as stored in a column of type
// t. Keys of equal stored values are equal regardless of the Go type they
// were read from, so int and int64 ids group together.
func Key(v any, t Type) (any, error) {
	s, err := ToStorage(v, t)
	if err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case []byte:
		return string(s), nil
	case time.Time:
		return s.UnixNano(), nil
	}
	return s, nil
}

// indirect dereferences pointers. It reports false for nil.
func indirect(v any) (any, bool) {
	switch v.(type) {
	case nil:
		return nil, false
	case bool, int, int64, int32, float64, string, time.Time, uuid.UUID, []byte:
		return v, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() && rv.Type() != bytesType {
		return nil, false
	}
	return rv.Interface(), true
}

func toInt64(v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return nil, fmt.Errorf("field: %v is not an integer", v)
		}
		return int64(v), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("field: %d overflows int64", u)
		}
		return int64(u), nil
	}
	return nil, conversionError(v, TypeInt64)
}

func toFloat64(v any) (any, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, conversionError(v, TypeFloat64)
}

func uuidValue(v any) (any, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u.String(), nil
	case string:
		p, err := uuid.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
		return p.String(), nil
	case [16]byte:
		return uuid.UUID(u).String(), nil
	}
	return nil, conversionError(v, TypeUUID)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("field: cannot parse %q as time", s)
}

func conversionError(v any, t Type) error {
	return fmt.Errorf("field: cannot convert %T to %s", v, t)
}
