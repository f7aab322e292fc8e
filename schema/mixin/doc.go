// Package mixin provides reusable column sets shared across entity types.
//
// A mixin is an embeddable struct plus a function returning the column
// definitions backed by it:
//
//	type Account struct {
//	    mixin.Key
//	    mixin.Versioned
//	    Owner   string
//	    Balance int64
//	}
//
//	schema.Define[Account]("Account").
//	    Mixin(
//	        mixin.KeyFields(func(a *Account) *mixin.Key { return &a.Key }),
//	        mixin.VersionedFields(func(a *Account) *mixin.Versioned { return &a.Versioned }),
//	    ).
//	    Fields(
//	        schema.Field("owner", func(a *Account) *string { return &a.Owner }),
//	        schema.Field("balance", func(a *Account) *int64 { return &a.Balance }),
//	    )
//
// Built-in mixins:
//
//	mixin.Key        // id INTEGER auto-increment primary key
//	mixin.Versioned  // version integer optimistic-concurrency column
//	mixin.Timestamps // created_at and updated_at columns
//	mixin.SoftDelete // nullable deleted_at column
package mixin
