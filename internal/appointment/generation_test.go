package appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerations(t *testing.T) {
	g := NewGenerations()

	ctx1, n1 := g.Begin(context.Background(), "s")
	assert.True(t, g.Current("s", n1))

	ctx2, n2 := g.Begin(context.Background(), "s")
	assert.Greater(t, n2, n1)
	assert.False(t, g.Current("s", n1))
	assert.True(t, g.Current("s", n2))
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())

	// Ending a superseded generation does not touch the current one.
	g.End("s", n1)
	assert.NoError(t, ctx2.Err())

	g.End("s", n2)
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
	assert.True(t, g.Current("s", n2))

	_, other := g.Begin(context.Background(), "t")
	assert.True(t, g.Current("s", n2))
	assert.True(t, g.Current("t", other))

	ctx3, n3 := g.Begin(context.Background(), "s")
	g.Forget("s")
	assert.ErrorIs(t, ctx3.Err(), context.Canceled)
	assert.False(t, g.Current("s", n3))
	assert.Equal(t, 1, g.Len())

	// Tokens never repeat after a key is forgotten.
	_, n4 := g.Begin(context.Background(), "s")
	assert.Greater(t, n4, n3)
}
