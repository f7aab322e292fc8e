package orm_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb/config"
	"github.com/syssam/veloxdb/orm"
	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/mixin"
)

type User struct {
	mixin.Key
	mixin.Versioned
	mixin.Timestamps
	Name  string
	Email string
	Age   int
	Posts []*Post
}

type Post struct {
	ID     int64
	UserID int64
	Title  string
	Author *User
	Tags   []*Tag
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

func registry() *schema.Registry {
	reg := schema.NewRegistry()
	schema.Register(reg, schema.Define[User]("User").
		Fields(
			schema.Field("name", func(u *User) *string { return &u.Name }),
			schema.Field("email", func(u *User) *string { return &u.Email }),
			schema.Field("age", func(u *User) *int { return &u.Age }),
		).
		Mixin(
			mixin.KeyFields(func(u *User) *mixin.Key { return &u.Key }),
			mixin.VersionedFields(func(u *User) *mixin.Versioned { return &u.Versioned }),
			mixin.TimestampsFields(func(u *User) *mixin.Timestamps { return &u.Timestamps }),
		).
		Edges(
			schema.HasMany("Posts", "Post", "user_id", func(u *User) *[]*Post { return &u.Posts }),
		))
	schema.Register(reg, schema.Define[Post]("Post").
		Fields(
			schema.ID("id", func(p *Post) *int64 { return &p.ID }),
			schema.Field("user_id", func(p *Post) *int64 { return &p.UserID }).References("User"),
			schema.Field("title", func(p *Post) *string { return &p.Title }),
		).
		Edges(
			schema.BelongsTo("Author", "User", "user_id", func(p *Post) **User { return &p.Author }),
			schema.ManyToMany("Tags", "Tag", "PostTag", "post_id", "tag_id", func(p *Post) *[]*Tag { return &p.Tags }),
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
		Table("post_tags").
		Fields(
			schema.ID("id", func(pt *PostTag) *int64 { return &pt.ID }),
			schema.Field("post_id", func(pt *PostTag) *int64 { return &pt.PostID }).References("Post"),
			schema.Field("tag_id", func(pt *PostTag) *int64 { return &pt.TagID }).References("Tag"),
		))
	return reg
}

var ddl = []string{
	`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "version" INTEGER NOT NULL, "created_at" DATETIME NOT NULL, "updated_at" DATETIME NOT NULL, "name" TEXT NOT NULL, "email" TEXT NOT NULL UNIQUE, "age" INTEGER NOT NULL)`,
	`CREATE TABLE "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "user_id" INTEGER NOT NULL REFERENCES "users" ("id"), "title" TEXT NOT NULL)`,
	`CREATE TABLE "tags" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL)`,
	`CREATE TABLE "post_tags" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "post_id" INTEGER NOT NULL REFERENCES "posts" ("id"), "tag_id" INTEGER NOT NULL REFERENCES "tags" ("id"))`,
}

// clock is fixed so timestamps compare exactly after a round trip.
var clock = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }

type env struct {
	client *orm.Client
	users  *orm.Repository[User]
	posts  *orm.Repository[Post]
	tags   *orm.Repository[Tag]
	links  *orm.Repository[PostTag]
	logs   *bytes.Buffer
}

func open(t *testing.T, opts ...func(*config.Config)) *env {
	t.Helper()
	return openWith(t, nil, opts...)
}

// openWith is like open with extra client options.
func openWith(t *testing.T, extra []orm.Option, opts ...func(*config.Config)) *env {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.DSN = filepath.Join(t.TempDir(), "app.db")
	for _, opt := range opts {
		opt(&cfg)
	}
	logs := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := orm.Open(ctx, cfg, append([]orm.Option{orm.Registry(registry()), orm.Log(log), orm.Clock(clock)}, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	for _, stmt := range ddl {
		require.NoError(t, client.Driver().Exec(ctx, stmt, []any{}, nil))
	}
	return &env{
		client: client,
		users:  orm.MustFor[User](client, "User"),
		posts:  orm.MustFor[Post](client, "Post"),
		tags:   orm.MustFor[Tag](client, "Tag"),
		links:  orm.MustFor[PostTag](client, "PostTag"),
		logs:   logs,
	}
}

// seed creates three users: ann with two posts, bob with none and cat with
// one. Posts share the "go" tag.
func (e *env) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	users := []*User{
		{Name: "ann", Email: "ann@example.com", Age: 31},
		{Name: "bob", Email: "bob@example.com", Age: 25},
		{Name: "cat", Email: "cat@example.com", Age: 40},
	}
	require.NoError(t, e.users.CreateMany(ctx, users))
	posts := []*Post{
		{UserID: users[0].ID, Title: "first"},
		{UserID: users[0].ID, Title: "second"},
		{UserID: users[2].ID, Title: "third"},
	}
	require.NoError(t, e.posts.CreateMany(ctx, posts))
	tags := []*Tag{{Name: "go"}, {Name: "sql"}}
	require.NoError(t, e.tags.CreateMany(ctx, tags))
	require.NoError(t, e.links.CreateMany(ctx, []*PostTag{
		{PostID: posts[0].ID, TagID: tags[0].ID},
		{PostID: posts[0].ID, TagID: tags[1].ID},
		{PostID: posts[2].ID, TagID: tags[0].ID},
	}))
}

func newUsers(n int) []*User {
	us := make([]*User, n)
	for i := range us {
		us[i] = &User{Name: fmt.Sprintf("user%04d", i), Email: fmt.Sprintf("user%04d@example.com", i), Age: i % 90}
	}
	return us
}
