package concurrency

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/veloxdb/schema/field"
)

// epoch is the initial version of timestamp version columns.
var epoch = time.Unix(0, 0).UTC()

// Initial returns the version assigned on insert to an unset version column
// of type t.
func Initial(t field.Type) (any, error) {
	switch t {
	case field.TypeInt64:
		return int64(0), nil
	case field.TypeTime:
		return epoch, nil
	case field.TypeUUID:
		return uuid.New(), nil
	}
	return nil, fmt.Errorf("concurrency: %s is not a version type", t)
}

// IsUnset reports whether v, a canonical version value, is the zero value of
// its type.
func IsUnset(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case int64:
		return v == 0
	case time.Time:
		return v.IsZero()
	case uuid.UUID:
		return v == uuid.Nil
	}
	return false
}

// Next returns the version following cur: integers increment, timestamps
// take now at microsecond precision and UUIDs regenerate.
func Next(t field.Type, cur any, now time.Time) (any, error) {
	switch t {
	case field.TypeInt64:
		i, ok := cur.(int64)
		if !ok {
			return nil, fmt.Errorf("concurrency: integer version is %T", cur)
		}
		return i + 1, nil
	case field.TypeTime:
		next := now.UTC().Truncate(time.Microsecond)
		if prev, ok := cur.(time.Time); ok && !next.After(prev) {
			next = prev.Add(time.Microsecond)
		}
		return next, nil
	case field.TypeUUID:
		return uuid.New(), nil
	}
	return nil, fmt.Errorf("concurrency: %s is not a version type", t)
}

// VersionState is the version of one write attempt: Loaded is the value the
// entity was read with and Pending the value the attempt writes.
type VersionState struct {
	Loaded  any
	Pending any
}
