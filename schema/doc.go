// Package schema describes how entity types map onto tables.
//
// A Descriptor is built once per entity type with the generic Builder, using
// typed accessors instead of struct tags or runtime reflection over the
// entity:
//
//	type Category struct {
//	    ID       int64
//	    Name     string
//	    ParentID *int64
//	    Version  int64
//	    Children []*Category
//	}
//
//	var Categories = schema.Define[Category]("Category").
//	    Fields(
//	        schema.ID("id", func(c *Category) *int64 { return &c.ID }),
//	        schema.Field("name", func(c *Category) *string { return &c.Name }),
//	        schema.Field("parent_id", func(c *Category) **int64 { return &c.ParentID }).
//	            References("Category"),
//	        schema.Version("version", func(c *Category) *int64 { return &c.Version }),
//	    ).
//	    Edges(
//	        schema.HasMany("Children", "Category", "parent_id",
//	            func(c *Category) *[]*Category { return &c.Children }),
//	    )
//
// The table name defaults to the pluralized, underscored entity name
// ("categories"). Descriptors are registered in a Registry, which builds each
// one on first use and serves it for the life of the process.
package schema
