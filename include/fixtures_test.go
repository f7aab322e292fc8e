package include_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema"
)

type Category struct {
	ID       int64
	Name     string
	ParentID *int64
	Children []*Category
	Parent   *Category
}

type Author struct {
	ID    int64
	Name  string
	Posts []*Post
}

type Post struct {
	ID       int64
	Title    string
	AuthorID *int64
	Author   *Author
	Tags     []*Tag
	Comments []*Comment
}

type Tag struct {
	ID    int64
	Name  string
	Posts []*Post
}

type PostTag struct {
	ID     int64
	PostID int64
	TagID  int64
}

type Comment struct {
	ID       int64
	PostID   int64
	Body     string
	AuthorID *int64
	Author   *Author
}

type Broken struct {
	ID    int64
	Tags  []*Tag
	Ghost []*Tag
}

func registry(t testing.TB) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	schema.Register(reg, schema.Define[Category]("Category").
		Fields(
			schema.ID("id", func(c *Category) *int64 { return &c.ID }),
			schema.Field("name", func(c *Category) *string { return &c.Name }),
			schema.Field("parent_id", func(c *Category) **int64 { return &c.ParentID }).References("Category"),
		).
		Edges(
			schema.HasMany("Children", "Category", "parent_id", func(c *Category) *[]*Category { return &c.Children }),
			schema.BelongsTo("Parent", "Category", "parent_id", func(c *Category) **Category { return &c.Parent }),
		))
	schema.Register(reg, schema.Define[Author]("Author").
		Fields(
			schema.ID("id", func(a *Author) *int64 { return &a.ID }),
			schema.Field("name", func(a *Author) *string { return &a.Name }),
		).
		Edges(
			schema.HasMany("Posts", "Post", "author_id", func(a *Author) *[]*Post { return &a.Posts }),
		))
	schema.Register(reg, schema.Define[Post]("Post").
		Fields(
			schema.ID("id", func(p *Post) *int64 { return &p.ID }),
			schema.Field("title", func(p *Post) *string { return &p.Title }),
			schema.Field("author_id", func(p *Post) **int64 { return &p.AuthorID }).References("Author"),
		).
		Edges(
			schema.BelongsTo("Author", "Author", "author_id", func(p *Post) **Author { return &p.Author }),
			schema.ManyToMany("Tags", "Tag", "PostTag", "post_id", "tag_id", func(p *Post) *[]*Tag { return &p.Tags }),
			schema.HasMany("Comments", "Comment", "post_id", func(p *Post) *[]*Comment { return &p.Comments }),
		))
	schema.Register(reg, schema.Define[Tag]("Tag").
		Fields(
			schema.ID("id", func(t *Tag) *int64 { return &t.ID }),
			schema.Field("name", func(t *Tag) *string { return &t.Name }),
		).
		Edges(
			schema.ManyToMany("Posts", "Post", "PostTag", "tag_id", "post_id", func(t *Tag) *[]*Post { return &t.Posts }),
		))
	schema.Register(reg, schema.Define[PostTag]("PostTag").
		Fields(
			schema.ID("id", func(pt *PostTag) *int64 { return &pt.ID }),
			schema.Field("post_id", func(pt *PostTag) *int64 { return &pt.PostID }).References("Post"),
			schema.Field("tag_id", func(pt *PostTag) *int64 { return &pt.TagID }).References("Tag"),
		))
	schema.Register(reg, schema.Define[Comment]("Comment").
		Fields(
			schema.ID("id", func(c *Comment) *int64 { return &c.ID }),
			schema.Field("post_id", func(c *Comment) *int64 { return &c.PostID }).References("Post"),
			schema.Field("body", func(c *Comment) *string { return &c.Body }),
			schema.Field("author_id", func(c *Comment) **int64 { return &c.AuthorID }).References("Author"),
		).
		Edges(
			schema.BelongsTo("Author", "Author", "author_id", func(c *Comment) **Author { return &c.Author }),
		))
	schema.Register(reg, schema.Define[Broken]("Broken").
		Fields(schema.ID("id", func(b *Broken) *int64 { return &b.ID })).
		Edges(
			schema.ManyToMany("Tags", "Tag", "", "", "", func(b *Broken) *[]*Tag { return &b.Tags }),
			schema.HasMany("Ghost", "Ghost", "broken_id", func(b *Broken) *[]*Tag { return &b.Ghost }),
		))
	return reg
}

func resolve(t testing.TB, reg *schema.Registry, name string) *schema.Descriptor {
	t.Helper()
	d, err := reg.Resolve(name)
	require.NoError(t, err)
	return d
}

const blogDDL = `
CREATE TABLE "categories" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL, "parent_id" INTEGER REFERENCES "categories" ("id"));
CREATE TABLE "authors" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL);
CREATE TABLE "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" TEXT NOT NULL, "author_id" INTEGER REFERENCES "authors" ("id"));
CREATE TABLE "tags" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL);
CREATE TABLE "post_tags" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "post_id" INTEGER NOT NULL REFERENCES "posts" ("id"), "tag_id" INTEGER NOT NULL REFERENCES "tags" ("id"));
CREATE TABLE "comments" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "post_id" INTEGER NOT NULL REFERENCES "posts" ("id"), "body" TEXT NOT NULL, "author_id" INTEGER REFERENCES "authors" ("id"));
INSERT INTO "categories" ("id", "name", "parent_id") VALUES (1, 'A', NULL), (2, 'B', NULL), (3, 'C', NULL), (4, 'A1', 1), (5, 'A2', 1), (6, 'C1', 3);
INSERT INTO "authors" ("id", "name") VALUES (1, 'ann'), (2, 'bob');
INSERT INTO "posts" ("id", "title", "author_id") VALUES (1, 'first', 1), (2, 'second', 2), (3, 'draft', NULL);
INSERT INTO "tags" ("id", "name") VALUES (1, 'go'), (2, 'sql'), (3, 'orm');
INSERT INTO "post_tags" ("post_id", "tag_id") VALUES (1, 1), (1, 2), (2, 2), (2, 3);
INSERT INTO "comments" ("post_id", "body", "author_id") VALUES (1, 'nice', 2), (1, 'thanks', 1), (2, 'hm', NULL);
`

func openBlog(t testing.TB) *sql.Driver {
	t.Helper()
	ctx := context.Background()
	drv, err := sql.OpenSQLite(ctx, filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	for _, stmt := range strings.Split(blogDDL, ";\n") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			require.NoError(t, drv.Exec(ctx, stmt, []any{}, nil), stmt)
		}
	}
	return drv
}

// fetch loads every row of the entity ordered by primary key.
func fetch(t testing.TB, drv dialect.ExecQuerier, d *schema.Descriptor) []any {
	t.Helper()
	b := sql.Dialect(dialect.SQLite)
	b.WriteString("SELECT * FROM ").Ident(d.Table).WriteString(" ORDER BY ").Ident(d.PrimaryKey().Name)
	query, args, err := b.Query()
	require.NoError(t, err)
	rows := &sql.Rows{}
	require.NoError(t, drv.Query(context.Background(), query, args, rows))
	entities, _, err := d.Scan(rows)
	require.NoError(t, err)
	return entities
}

// recorder counts the statements it passes through.
type recorder struct {
	dialect.ExecQuerier
	mu      sync.Mutex
	queries []string
}

func (r *recorder) Query(ctx context.Context, query string, args, v any) error {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	return r.ExecQuerier.Query(ctx, query, args, v)
}
