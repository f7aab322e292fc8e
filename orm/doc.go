// Package orm is the entry point of veloxdb: a Client owning the driver and
// the entity registry, and a generic Repository per entity type.
//
//	cfg, err := config.Load("veloxdb.yaml")
//	if err != nil {
//		return err
//	}
//	client, err := orm.Open(ctx, cfg, orm.Registry(reg))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	users, err := orm.For[User](client, "User")
//	if err != nil {
//		return err
//	}
//	active, err := users.Query().
//		Where(expr.Bool("active").EQ(true)).
//		Include("Posts.Tags").
//		Order(orm.Desc("created_at")).
//		All(ctx)
//
// Repositories evaluate the privacy.Policy registered for their entity with
// the Policy option before running any statement.
package orm
