package orm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/concurrency"
	"github.com/syssam/veloxdb/config"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/orm"
)

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	e := open(t)

	u := &User{Name: "ann", Email: "ann@example.com", Age: 31}
	require.NoError(t, e.users.Create(ctx, u))
	assert.Equal(t, int64(1), u.ID)
	assert.Zero(t, u.Version)
	assert.True(t, clock().Equal(u.CreatedAt))

	got, err := e.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)
	assert.Equal(t, 31, got.Age)
	assert.True(t, u.UpdatedAt.Equal(got.UpdatedAt))

	_, err = e.users.Get(ctx, int64(42))
	assert.True(t, veloxdb.IsNotFound(err))

	err = e.users.Create(ctx, &User{Name: "dup", Email: "ann@example.com"})
	require.Error(t, err)
	assert.True(t, veloxdb.IsConstraintError(err))
	assert.True(t, veloxdb.IsMutationError(err))
}

func TestCreateMany(t *testing.T) {
	ctx := context.Background()
	e := open(t, func(c *config.Config) { c.MaxBatchRows = 100 })

	us := newUsers(1234)
	require.NoError(t, e.users.CreateMany(ctx, us))
	for i, u := range us {
		require.Equal(t, int64(i+1), u.ID)
	}
	n, err := e.users.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	last, err := e.users.Query().Order(orm.Desc("id")).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user1233", last.Name)
	assert.Contains(t, e.logs.String(), "batches=13")
}

func TestCreateManyRollback(t *testing.T) {
	ctx := context.Background()
	e := open(t, func(c *config.Config) { c.MaxBatchRows = 10 })

	us := newUsers(30)
	us[25].Email = us[3].Email
	err := e.users.CreateMany(ctx, us)
	require.Error(t, err)
	assert.True(t, veloxdb.IsConstraintError(err))
	assert.Contains(t, err.Error(), "batch 3 of 3")

	n, err := e.users.Query().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "earlier batches are rolled back")
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	e := open(t)

	boom := errors.New("boom")
	err := orm.WithTx(ctx, e.client, func(tx dialect.Tx) error {
		users := e.users.WithTx(tx)
		if err := users.Create(ctx, &User{Name: "ann", Email: "ann@example.com"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	exist, err := e.users.Query().Exist(ctx)
	require.NoError(t, err)
	assert.False(t, exist)

	err = orm.WithTx(ctx, e.client, func(tx dialect.Tx) error {
		return e.users.WithTx(tx).CreateMany(ctx, newUsers(3))
	})
	require.NoError(t, err)
	n, err := e.users.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpdateConflict(t *testing.T) {
	ctx := context.Background()
	e := open(t)

	u := &User{Name: "ann", Email: "ann@example.com", Age: 31}
	require.NoError(t, e.users.Create(ctx, u))
	_, err := e.users.Update(ctx, u)
	require.NoError(t, err)
	require.Equal(t, int64(1), u.Version)

	first, err := e.users.Get(ctx, u.ID)
	require.NoError(t, err)
	second, err := e.users.Get(ctx, u.ID)
	require.NoError(t, err)

	first.Age = 32
	_, err = e.users.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Version)

	second.Name = "anna"
	_, err = e.users.Update(ctx, second)
	var conflict *veloxdb.OptimisticConcurrencyError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), conflict.Expected)
	assert.Equal(t, int64(2), conflict.Actual)
	assert.Equal(t, "User", conflict.Entity)
	assert.Contains(t, e.logs.String(), "optimistic concurrency conflict")

	stored, err := e.users.WithResolution(concurrency.PreferIncoming()).Update(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Version)

	got, err := e.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna", got.Name)
	assert.Equal(t, 31, got.Age, "client wins writes every column")
	assert.Equal(t, int64(3), got.Version)
}

func TestUpdateFields(t *testing.T) {
	ctx := context.Background()
	e := open(t)

	u := &User{Name: "ann", Email: "ann@example.com", Age: 31}
	require.NoError(t, e.users.Create(ctx, u))
	_, err := e.users.UpdateFields(ctx, u, expr.Int("age").Add(1), expr.String("name").Set("ann b"))
	require.NoError(t, err)
	assert.Equal(t, 32, u.Age)
	assert.Equal(t, "ann b", u.Name)
	assert.Equal(t, int64(1), u.Version)

	_, err = e.users.UpdateFields(ctx, u, expr.Int64("id").Set(9))
	assert.True(t, veloxdb.IsUnsupportedExpression(err))
	_, err = e.users.UpdateFields(ctx, u, expr.String("nickname").Set("x"))
	assert.True(t, veloxdb.IsUnknownColumn(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e := open(t)
	e.seed(t)

	stale, err := e.users.Get(ctx, int64(2))
	require.NoError(t, err)
	fresh, err := e.users.Get(ctx, int64(2))
	require.NoError(t, err)
	_, err = e.users.Update(ctx, fresh)
	require.NoError(t, err)

	err = e.users.Delete(ctx, stale)
	var conflict *veloxdb.OptimisticConcurrencyError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(0), conflict.Expected)
	assert.Equal(t, int64(1), conflict.Actual)

	require.NoError(t, e.users.Delete(ctx, fresh))
	_, err = e.users.Get(ctx, int64(2))
	assert.True(t, veloxdb.IsNotFound(err))
	assert.True(t, veloxdb.IsNotFound(e.users.Delete(ctx, fresh)))

	require.NoError(t, e.links.DeleteByID(ctx, int64(1)))
	assert.True(t, veloxdb.IsNotFound(e.links.DeleteByID(ctx, int64(1))))

	link, err := e.links.Get(ctx, int64(2))
	require.NoError(t, err)
	require.NoError(t, e.links.Delete(ctx, link))
	assert.True(t, veloxdb.IsNotFound(e.links.Delete(ctx, link)))
}

func TestFor(t *testing.T) {
	e := open(t)
	_, err := orm.For[User](e.client, "Ghost")
	assert.Error(t, err)
	_, err = orm.For[Post](e.client, "User")
	assert.ErrorContains(t, err, "not *orm_test.Post")
	assert.Panics(t, func() { orm.MustFor[Tag](e.client, "Post") })
}
