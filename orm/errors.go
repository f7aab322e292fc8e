package orm

import (
	"context"
	"errors"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect/sql/sqlgraph"
	"github.com/syssam/veloxdb/privacy"
	"github.com/syssam/veloxdb/schema"
)

// passthrough reports whether err is already a typed veloxdb error callers
// match on directly.
func passthrough(err error) bool {
	return veloxdb.IsNotFound(err) ||
		veloxdb.IsNotSingular(err) ||
		veloxdb.IsOptimisticConcurrency(err) ||
		veloxdb.IsUnsupportedExpression(err) ||
		veloxdb.IsUnknownColumn(err) ||
		veloxdb.IsInvalidBatchConfiguration(err) ||
		errors.Is(err, veloxdb.ErrInvalidInclude) ||
		errors.Is(err, privacy.Deny) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func queryError(d *schema.Descriptor, op string, err error) error {
	if passthrough(err) {
		return err
	}
	return veloxdb.NewQueryError(d.Name, op, err)
}

func mutationError(d *schema.Descriptor, op string, err error) error {
	if passthrough(err) {
		return err
	}
	if sqlgraph.IsConstraintError(err) {
		err = veloxdb.NewConstraintError(err.Error(), err)
	}
	return veloxdb.NewMutationError(d.Name, op, err)
}
