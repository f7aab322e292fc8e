package field

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// A Type represents a field storage type.
type Type uint8

// List of field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt64
	TypeFloat64
	TypeString
	TypeTime
	TypeUUID
	TypeBytes
	TypePacked
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeTime:    "time.Time",
	TypeUUID:    "uuid.UUID",
	TypeBytes:   "[]byte",
	TypePacked:  "packed",
}

var constNames = [...]string{
	TypeBool:    "TypeBool",
	TypeInt64:   "TypeInt64",
	TypeFloat64: "TypeFloat64",
	TypeString:  "TypeString",
	TypeTime:    "TypeTime",
	TypeUUID:    "TypeUUID",
	TypeBytes:   "TypeBytes",
	TypePacked:  "TypePacked",
}

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t == TypeInt64 || t == TypeFloat64
}

// Valid reports if the given type if known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// ConstName returns the constant name of a type.
func (t Type) ConstName() string {
	if !t.Valid() {
		return "invalid"
	}
	return constNames[t]
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// TypeOf returns the storage type of values of Go type V and whether V is a
// pointer, making the column nullable. It runs once per column when a
// descriptor is built.
func TypeOf[V any]() (Type, bool) {
	rt := reflect.TypeOf((*V)(nil)).Elem()
	nullable := false
	if rt.Kind() == reflect.Pointer {
		rt, nullable = rt.Elem(), true
	}
	return typeOf(rt), nullable
}

func typeOf(rt reflect.Type) Type {
	switch rt {
	case timeType:
		return TypeTime
	case uuidType:
		return TypeUUID
	case bytesType:
		return TypeBytes
	}
	switch rt.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt64
	case reflect.Float32, reflect.Float64:
		return TypeFloat64
	case reflect.String:
		return TypeString
	default:
		return TypePacked
	}
}
