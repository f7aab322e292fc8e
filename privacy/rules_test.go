package privacy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/privacy"
)

func viewerCtx(id string, tenant string, roles ...string) context.Context {
	return privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: id, Roles: roles, TenantID: tenant})
}

func TestViewerContext(t *testing.T) {
	assert.Nil(t, privacy.ViewerFromContext(context.Background()))
	v := privacy.ViewerFromContext(viewerCtx("42", "acme", "admin"))
	require.NotNil(t, v)
	assert.Equal(t, "42", v.GetID())
	assert.Equal(t, "acme", v.GetTenantID())
	assert.Equal(t, []string{"admin"}, v.GetRoles())
}

func TestDenyIfNoViewer(t *testing.T) {
	rule := privacy.DenyIfNoViewer()
	assert.ErrorIs(t, rule.EvalMutation(context.Background(), mutation(privacy.OpCreate, &Doc{})), privacy.Deny)
	assert.ErrorIs(t, rule.EvalQuery(context.Background(), privacy.NewQuery(docs)), privacy.Deny)
	assert.ErrorIs(t, rule.EvalQuery(viewerCtx("1", ""), privacy.NewQuery(docs)), privacy.Skip)
}

func TestRoles(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		rule privacy.QueryMutationRule
		want error
	}{
		{"no viewer", context.Background(), privacy.HasRole("admin"), privacy.Skip},
		{"has role", viewerCtx("1", "", "user", "admin"), privacy.HasRole("admin"), privacy.Allow},
		{"lacks role", viewerCtx("1", "", "user"), privacy.HasRole("admin"), privacy.Skip},
		{"any role", viewerCtx("1", "", "moderator"), privacy.HasAnyRole("admin", "moderator"), privacy.Allow},
		{"no roles", viewerCtx("1", ""), privacy.HasAnyRole("admin", "moderator"), privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.rule.EvalMutation(tt.ctx, mutation(privacy.OpUpdate, &Doc{})), tt.want)
			assert.ErrorIs(t, tt.rule.EvalQuery(tt.ctx, privacy.NewQuery(docs)), tt.want)
		})
	}
}

func TestIsOwner(t *testing.T) {
	rule := privacy.IsOwner("owner")
	assert.ErrorIs(t, rule.EvalMutation(viewerCtx("ann", ""), mutation(privacy.OpUpdate, &Doc{Owner: "ann"})), privacy.Allow)
	assert.ErrorIs(t, rule.EvalMutation(viewerCtx("bob", ""), mutation(privacy.OpUpdate, &Doc{Owner: "ann"})), privacy.Skip)
	assert.ErrorIs(t, rule.EvalMutation(context.Background(), mutation(privacy.OpUpdate, &Doc{Owner: "ann"})), privacy.Skip)
	assert.ErrorIs(t, rule.EvalMutation(viewerCtx("ann", ""), mutation(privacy.OpDelete, nil)), privacy.Skip)

	byID := privacy.IsOwner("id")
	assert.ErrorIs(t, byID.EvalMutation(viewerCtx("7", ""), mutation(privacy.OpUpdate, &Doc{ID: 7})), privacy.Allow)
}

func TestTenantRule(t *testing.T) {
	rule := privacy.TenantRule("tenant")
	assert.ErrorIs(t, rule.EvalMutation(viewerCtx("1", "acme"), mutation(privacy.OpCreate, &Doc{Tenant: "acme"})), privacy.Allow)
	assert.ErrorIs(t, rule.EvalMutation(viewerCtx("1", "acme"), mutation(privacy.OpCreate, &Doc{Tenant: "umbrella"})), privacy.Deny)
	assert.ErrorIs(t, rule.EvalMutation(viewerCtx("1", ""), mutation(privacy.OpCreate, &Doc{Tenant: "acme"})), privacy.Skip)
}

func TestQueryRules(t *testing.T) {
	q := privacy.NewQuery(docs)
	require.ErrorIs(t, privacy.OwnerQueryRule("owner").EvalQuery(context.Background(), q), privacy.Deny)
	require.ErrorIs(t, privacy.OwnerQueryRule("owner").EvalQuery(viewerCtx("ann", ""), q), privacy.Skip)
	assert.Equal(t, []expr.Expr{expr.Compare{Column: "owner", Op: expr.OpEQ, Value: "ann"}}, q.Filters())

	q = privacy.NewQuery(docs)
	require.ErrorIs(t, privacy.TenantQueryRule("tenant").EvalQuery(viewerCtx("ann", ""), q), privacy.Deny)
	require.ErrorIs(t, privacy.TenantQueryRule("tenant").EvalQuery(viewerCtx("ann", "acme"), q), privacy.Skip)
	assert.Equal(t, []expr.Expr{expr.Compare{Column: "tenant", Op: expr.OpEQ, Value: "acme"}}, q.Filters())
}
