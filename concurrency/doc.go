// Package concurrency implements optimistic concurrency for versioned
// entities.
//
// An entity descriptor with a version column gets compare-and-swap updates:
//
//	UPDATE "accounts" SET "balance" = @balance, "version" = @version
//	WHERE ("id" = @id) AND ("version" = @version_2) RETURNING *
//
// When no row matches, the controller re-reads the stored row and asks the
// Resolution chosen by the caller how to proceed. Throw fails with a
// veloxdb.OptimisticConcurrencyError, PreferIncoming retries on top of the
// stored version, PreferStored adopts the stored row and Merge retries with
// the entity returned by a merge function.
package concurrency
