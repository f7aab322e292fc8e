package veloxdb_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := veloxdb.NewNotFoundError("User")
		assert.Equal(t, "veloxdb: User not found", err.Error())
		err = veloxdb.NewNotFoundErrorWithID("User", 7)
		assert.Equal(t, "veloxdb: User not found (id=7)", err.Error())
		assert.Equal(t, 7, err.ID())
		assert.Equal(t, "User", err.Label())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := veloxdb.NewNotFoundError("Comment")
		assert.True(t, veloxdb.IsNotFound(err))
		assert.True(t, errors.Is(err, veloxdb.ErrNotFound))
		assert.True(t, veloxdb.IsNotFound(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, veloxdb.IsNotFound(veloxdb.ErrNotFound))
		assert.False(t, veloxdb.IsNotFound(errors.New("other error")))
		assert.False(t, veloxdb.IsNotFound(nil))
	})
}

func TestNotSingularError(t *testing.T) {
	err := veloxdb.NewNotSingularErrorWithCount("Post", 3)
	assert.Equal(t, "veloxdb: Post not singular (got 3 results, expected 1)", err.Error())
	assert.True(t, errors.Is(err, veloxdb.ErrNotSingular))
	assert.True(t, veloxdb.IsNotSingular(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, veloxdb.IsNotSingular(nil))
}

func TestIncludeErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		is    func(error) bool
		wants string
	}{
		{
			name:  "duplicate",
			err:   &veloxdb.DuplicateIncludeError{Path: "Posts"},
			is:    veloxdb.IsDuplicateInclude,
			wants: `veloxdb: include "Posts" registered twice`,
		},
		{
			name:  "depth",
			err:   &veloxdb.DepthExceededError{Path: "A.B", Depth: 2, Max: 1},
			is:    veloxdb.IsDepthExceeded,
			wants: `veloxdb: include "A.B" has depth 2, maximum is 1`,
		},
		{
			name:  "cycle",
			err:   &veloxdb.CycleDetectedError{Path: "Posts.Author", Chain: []string{"User", "Post", "User"}},
			is:    veloxdb.IsCycleDetected,
			wants: `veloxdb: include "Posts.Author" forms a cycle (User -> Post -> User)`,
		},
		{
			name:  "metadata",
			err:   &veloxdb.MissingNavigationMetadataError{Entity: "Post", Navigation: "Tags", Reason: "no junction"},
			is:    veloxdb.IsMissingNavigationMetadata,
			wants: `veloxdb: navigation Post.Tags: no junction`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wants, tt.err.Error())
			assert.True(t, tt.is(fmt.Errorf("wrapped: %w", tt.err)))
			assert.True(t, errors.Is(tt.err, veloxdb.ErrInvalidInclude))
		})
	}
}

func TestOptimisticConcurrencyError(t *testing.T) {
	err := &veloxdb.OptimisticConcurrencyError{Entity: "Account", ID: 1, Expected: int64(1), Actual: int64(2)}
	assert.Equal(t, "veloxdb: Account (id=1) was modified concurrently: expected version 1, found 2", err.Error())
	assert.True(t, errors.Is(err, veloxdb.ErrConcurrencyConflict))

	var target *veloxdb.OptimisticConcurrencyError
	require.True(t, errors.As(fmt.Errorf("update: %w", err), &target))
	assert.Equal(t, int64(1), target.Expected)
	assert.Equal(t, int64(2), target.Actual)
	assert.False(t, veloxdb.IsOptimisticConcurrency(nil))
}

func TestExpressionErrors(t *testing.T) {
	err := veloxdb.NewUnsupportedExpressionError("Call", "method %q is not allowed", "Trim")
	assert.Equal(t, `veloxdb: unsupported expression Call: method "Trim" is not allowed`, err.Error())
	assert.True(t, veloxdb.IsUnsupportedExpression(err))
	assert.False(t, veloxdb.IsUnknownColumn(err))

	col := veloxdb.NewUnknownColumnError("User", "nickname")
	assert.Equal(t, `veloxdb: User has no column or field "nickname"`, col.Error())
	assert.True(t, veloxdb.IsUnknownColumn(fmt.Errorf("compile: %w", col)))
}

func TestInvalidBatchConfigurationError(t *testing.T) {
	err := &veloxdb.InvalidBatchConfigurationError{MaxRows: 0, MaxParams: 999, Columns: 3}
	assert.Equal(t, "veloxdb: invalid batch configuration (max rows 0, max params 999, columns 3)", err.Error())
	assert.True(t, veloxdb.IsInvalidBatchConfiguration(err))
}

func TestConstraintError(t *testing.T) {
	inner := errors.New("UNIQUE constraint failed: users.email")
	err := veloxdb.NewConstraintError("insert users", inner)
	assert.Equal(t, "veloxdb: constraint failed: insert users", err.Error())
	assert.True(t, veloxdb.IsConstraintError(err))
	assert.ErrorIs(t, err, inner)
	assert.False(t, veloxdb.IsConstraintError(inner))
}

func TestValidationError(t *testing.T) {
	inner := errors.New("missing primary key")
	err := veloxdb.NewValidationError("User", inner)
	assert.Equal(t, `veloxdb: invalid descriptor "User": missing primary key`, err.Error())
	assert.True(t, veloxdb.IsValidationError(err))
	assert.ErrorIs(t, err, inner)
}

func TestAggregateError(t *testing.T) {
	assert.NoError(t, veloxdb.NewAggregateError(nil, nil))

	single := errors.New("one")
	assert.Equal(t, single, veloxdb.NewAggregateError(nil, single))

	second := errors.New("two")
	err := veloxdb.NewAggregateError(single, nil, second)
	require.Error(t, err)
	assert.Equal(t, "veloxdb: multiple errors:\n  [1] one\n  [2] two", err.Error())
	assert.ErrorIs(t, err, second)
}

func TestQueryAndMutationErrors(t *testing.T) {
	inner := errors.New("boom")

	qerr := veloxdb.NewQueryError("User", "select", inner)
	assert.Equal(t, "veloxdb: querying User (select): boom", qerr.Error())
	assert.True(t, veloxdb.IsQueryError(qerr))
	assert.ErrorIs(t, qerr, inner)

	merr := veloxdb.NewMutationError("User", "create", inner)
	assert.Equal(t, "veloxdb: create User: boom", merr.Error())
	assert.True(t, veloxdb.IsMutationError(merr))

	rerr := &veloxdb.RollbackError{Err: inner}
	assert.Equal(t, "veloxdb: rollback failed: boom", rerr.Error())
	assert.ErrorIs(t, rerr, inner)
}
