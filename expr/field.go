package expr

import (
	"time"

	"github.com/google/uuid"
)

// Field is a typed column reference building expressions over values of
// type V.
//
// Usage:
//
//	var Age = expr.Int("age")
//	repo.Query().Where(Age.GT(30))
type Field[V any] string

// Value returns a field of any value type.
func Value[V any](column string) Field[V] { return Field[V](column) }

// Int returns an int field.
func Int(column string) Field[int] { return Field[int](column) }

// Int64 returns an int64 field.
func Int64(column string) Field[int64] { return Field[int64](column) }

// Float returns a float64 field.
func Float(column string) Field[float64] { return Field[float64](column) }

// Bool returns a bool field.
func Bool(column string) Field[bool] { return Field[bool](column) }

// Time returns a time.Time field.
func Time(column string) Field[time.Time] { return Field[time.Time](column) }

// UUID returns a uuid.UUID field.
func UUID(column string) Field[uuid.UUID] { return Field[uuid.UUID](column) }

// Name returns the column name.
func (f Field[V]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[V]) EQ(v V) Expr { return Compare{Column: string(f), Op: OpEQ, Value: v} }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[V]) NEQ(v V) Expr { return Compare{Column: string(f), Op: OpNEQ, Value: v} }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[V]) GT(v V) Expr { return Compare{Column: string(f), Op: OpGT, Value: v} }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[V]) GTE(v V) Expr { return Compare{Column: string(f), Op: OpGTE, Value: v} }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[V]) LT(v V) Expr { return Compare{Column: string(f), Op: OpLT, Value: v} }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[V]) LTE(v V) Expr { return Compare{Column: string(f), Op: OpLTE, Value: v} }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[V]) In(vs ...V) Expr { return In{Column: string(f), Values: anys(vs)} }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[V]) NotIn(vs ...V) Expr {
	return In{Column: string(f), Values: anys(vs), Negate: true}
}

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[V]) IsNull() Expr { return IsNull{Column: string(f)} }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[V]) NotNull() Expr { return IsNull{Column: string(f), Negate: true} }

// Set returns an update assigning v to the field.
func (f Field[V]) Set(v V) Update { return Set{Column: string(f), Value: v} }

// SetNull returns an update clearing the field.
func (f Field[V]) SetNull() Update { return SetNull{Column: string(f)} }

// Add returns an update incrementing the numeric field by v.
func (f Field[V]) Add(v V) Update { return Increment{Column: string(f), By: v} }

// StringField is a string column reference with the string methods.
type StringField struct {
	Field[string]
}

// String returns a string field.
func String(column string) StringField { return StringField{Field[string](column)} }

func (f StringField) call(m Method, v string) Expr {
	return Call{Method: m, Column: f.Name(), Arg: v}
}

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) Expr { return f.call(Contains, v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) Expr { return f.call(HasPrefix, v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) Expr { return f.call(HasSuffix, v) }

// ContainsFold returns a predicate that checks if the field contains the given substring (case-insensitive).
func (f StringField) ContainsFold(v string) Expr { return f.call(ContainsFold, v) }

// HasPrefixFold returns a predicate that checks if the field has the given prefix (case-insensitive).
func (f StringField) HasPrefixFold(v string) Expr { return f.call(HasPrefixFold, v) }

// HasSuffixFold returns a predicate that checks if the field has the given suffix (case-insensitive).
func (f StringField) HasSuffixFold(v string) Expr { return f.call(HasSuffixFold, v) }

// EqualFold returns a predicate that checks if the field equals the given value (case-insensitive).
func (f StringField) EqualFold(v string) Expr { return f.call(EqualFold, v) }

func anys[V any](vs []V) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
