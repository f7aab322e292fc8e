package edge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/veloxdb/schema/edge"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "O2M", edge.OneToMany.String())
	assert.Equal(t, "M2M", edge.ManyToMany.String())
	assert.Equal(t, "M2O", edge.ManyToOne.String())
	assert.Equal(t, "invalid", edge.Kind(9).String())

	assert.True(t, edge.OneToMany.Collection())
	assert.True(t, edge.ManyToMany.Collection())
	assert.False(t, edge.ManyToOne.Collection())
	assert.False(t, edge.Invalid.Collection())
}
