package mixin

import (
	"time"

	"github.com/syssam/veloxdb/schema"
)

// Key adds an auto-incrementing integer primary key named "id".
type Key struct {
	ID int64
}

// KeyFields returns the column definitions of Key for entity type T.
func KeyFields[T any](ref func(*T) *Key) []*schema.FieldDef[T] {
	return []*schema.FieldDef[T]{
		schema.ID("id", func(e *T) *int64 { return &ref(e).ID }),
	}
}

// Versioned adds an integer version column named "version".
type Versioned struct {
	Version int64
}

// VersionedFields returns the column definitions of Versioned for entity type T.
func VersionedFields[T any](ref func(*T) *Versioned) []*schema.FieldDef[T] {
	return []*schema.FieldDef[T]{
		schema.Version("version", func(e *T) *int64 { return &ref(e).Version }),
	}
}

// Timestamps adds created_at and updated_at columns.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch sets UpdatedAt to now, and CreatedAt too when it is unset.
func (t *Timestamps) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// TimestampsFields returns the column definitions of Timestamps for entity type T.
func TimestampsFields[T any](ref func(*T) *Timestamps) []*schema.FieldDef[T] {
	return []*schema.FieldDef[T]{
		schema.Field("created_at", func(e *T) *time.Time { return &ref(e).CreatedAt }),
		schema.Field("updated_at", func(e *T) *time.Time { return &ref(e).UpdatedAt }),
	}
}

// SoftDelete adds a nullable deleted_at column.
type SoftDelete struct {
	DeletedAt *time.Time
}

// Deleted reports whether the entity is marked deleted.
func (s SoftDelete) Deleted() bool { return s.DeletedAt != nil }

// SoftDeleteFields returns the column definitions of SoftDelete for entity type T.
func SoftDeleteFields[T any](ref func(*T) *SoftDelete) []*schema.FieldDef[T] {
	return []*schema.FieldDef[T]{
		schema.Field("deleted_at", func(e *T) **time.Time { return &ref(e).DeletedAt }),
	}
}
