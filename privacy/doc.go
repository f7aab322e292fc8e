// Package privacy provides the rules repositories evaluate before their
// statements reach the database.
//
// A Policy is registered per entity on the client:
//
//	client, err := orm.NewClient(orm.Driver(drv), orm.Registry(reg),
//	    orm.Policy("User", privacy.Policy{
//	        Mutation: privacy.MutationPolicy{
//	            privacy.DenyIfNoViewer(),
//	            privacy.HasRole("admin"),
//	            privacy.IsOwner("id"),
//	            privacy.AlwaysDenyRule(),
//	        },
//	        Query: privacy.QueryPolicy{
//	            privacy.TenantQueryRule("tenant"),
//	        },
//	    }),
//	)
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants access and stops evaluation
//   - Deny: denies access and stops evaluation
//   - Skip: continues to the next rule
//
// If all rules return Skip the operation is allowed, so policies meant to
// be closed end with AlwaysDenyRule. Query rules may narrow a query with
// Query.Where instead of deciding.
//
// # Viewers
//
// The viewer making a request travels in the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "42",
//	    Roles:  []string{"user"},
//	})
//	users, err := repo.Query().All(ctx)
//
// A denied operation returns an error wrapping Deny:
//
//	if errors.Is(err, privacy.Deny) { ... }
package privacy
