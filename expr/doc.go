// Package expr provides the filter and update expressions of veloxdb and the
// compiler rendering them into parameterized SQL fragments.
//
// Expressions form a closed set of node types. Filters are built either from
// the nodes directly or through typed field helpers:
//
//	age := expr.Int("age")
//	name := expr.String("name")
//	filter := expr.And{age.GTE(18), name.HasPrefixFold("al")}
//
// The compiler resolves every column through the entity descriptor and binds
// every value as a parameter:
//
//	c := expr.NewCompiler(dialect.SQLite)
//	clause, err := c.Compile(filter, users)
//	// clause.SQL: ("age" >= @age) AND (veloxdb_fold("name") LIKE veloxdb_fold(@name) ESCAPE '\')
//
// Update expressions render the SET list of an UPDATE statement:
//
//	clause, err := c.CompileUpdate([]expr.Update{name.Set("bob"), age.Add(1)}, users)
//	// clause.SQL: "name" = @name, "age" = "age" + @age
package expr
