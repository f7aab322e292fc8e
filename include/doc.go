// Package include validates include paths and eagerly loads the navigations
// they name.
//
// An include path is a dot-separated chain of navigation names rooted at the
// queried entity, such as "Posts.Tags". Paths are validated per query by a
// Validator, which rejects duplicates, paths deeper than the configured
// maximum and paths whose chain re-enters an entity type. Validated paths are
// merged into a Tree, which a Loader resolves against already fetched root
// entities with one batched statement per navigation and level:
//
//	tree, err := include.Build(reg, posts, include.DefaultMaxDepth, "Author", "Tags", "Comments.Author")
//	if err != nil {
//		return err
//	}
//	err = include.NewLoader(dialect.SQLite).Load(ctx, drv, roots, tree)
package include
