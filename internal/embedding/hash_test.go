package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashProviderDeterministicUnitVectors(t *testing.T) {
	p := NewHashProvider(64)
	ctx := context.Background()

	a, err := p.EmbedOne(ctx, "Article 1 The owner shall register")
	require.NoError(t, err)
	b, err := p.EmbedOne(ctx, "  article 1 the owner SHALL register ")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestHashProviderEmptyText(t *testing.T) {
	v, err := NewHashProvider(16).EmbedOne(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestHashProviderSimilarity(t *testing.T) {
	p := NewHashProvider(512)
	ctx := context.Background()
	vs, err := p.EmbedMany(ctx, []string{
		"the tenant must pay rent monthly",
		"the tenant must pay rent every month",
		"vessels entering the harbour require a pilot",
	})
	require.NoError(t, err)

	dot := func(x, y []float32) float64 {
		var s float64
		for i := range x {
			s += float64(x[i]) * float64(y[i])
		}
		return s
	}
	assert.Greater(t, dot(vs[0], vs[1]), dot(vs[0], vs[2]))
}

func TestHashProviderDefaultDimension(t *testing.T) {
	assert.Equal(t, HashDefaultDimension, NewHashProvider(0).Dimension())
}
