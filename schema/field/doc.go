// Package field defines the storage types of entity columns and the value
// converter between Go values and their database representation.
//
// Every column of a descriptor carries a Type inferred from its Go field when
// the descriptor is built:
//
//	int, int8 ... int64, uint ... uint64 -> TypeInt64
//	float32, float64                    -> TypeFloat64
//	string (and named string types)     -> TypeString
//	bool                                -> TypeBool
//	time.Time                           -> TypeTime
//	uuid.UUID                           -> TypeUUID
//	[]byte                              -> TypeBytes
//	anything else                       -> TypePacked (msgpack BLOB)
//
// Pointers to any of these make the column nullable.
//
// # Conversion
//
// ToStorage turns a Go value into the value bound to a statement parameter.
// FromStorage normalizes what a driver returned (int64, []byte, string,
// time.Time ...) into the canonical value of a Type, and Assign writes a
// canonical value through a pointer to the entity field:
//
//	v, _ := field.ToStorage(u.Age, field.TypeInt64)   // int64(30)
//	c, _ := field.FromStorage([]byte("30"), field.TypeInt64) // int64(30)
//	_ = field.Assign(&u.Age, c)
package field
