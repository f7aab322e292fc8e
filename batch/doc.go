// Package batch splits bulk inserts into statements that stay under the
// parameter limit of the dialect, renders multi-row INSERT statements and
// writes database-generated keys back into the inserted entities.
//
//	ins := batch.NewInserter(dialect.SQLite, batch.WithMaxRows(500))
//	if err := ins.Insert(ctx, tx, users, entities); err != nil {
//		return err
//	}
package batch
