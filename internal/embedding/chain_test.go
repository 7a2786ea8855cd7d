package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurisrag/internal/metrics"
)

type stubProvider struct {
	name  string
	dim   int
	err   error
	short bool
	calls int
}

func (s *stubProvider) Name() string   { return s.name }
func (s *stubProvider) Dimension() int { return s.dim }

func (s *stubProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *stubProvider) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	n := len(texts)
	if s.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, s.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func TestChainFallsThroughFailingProviders(t *testing.T) {
	bad := &stubProvider{name: "bad", dim: 4, err: errors.New("boom")}
	good := &stubProvider{name: "good", dim: 4}
	m := metrics.New()
	chain := NewChain([]Provider{bad, good}, WithMetrics(m))

	out, err := chain.EmbedMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float32{1, 0, 0, 0}, out[0])
	assert.Equal(t, 1, chain.Current())
	assert.Equal(t, "good", chain.ActiveProvider())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingCalls.WithLabelValues("bad", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingCalls.WithLabelValues("good", "success")))

	// the next call starts at the provider that last succeeded
	_, err = chain.EmbedOne(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 2, good.calls)
}

func TestChainWrapsAround(t *testing.T) {
	first := &stubProvider{name: "first", dim: 3}
	second := &stubProvider{name: "second", dim: 3}
	chain := NewChain([]Provider{first, second})
	chain.current.Store(1)
	second.err = errors.New("down")

	_, err := chain.EmbedOne(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 0, chain.Current())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChainTreatsCountMismatchAsFailure(t *testing.T) {
	short := &stubProvider{name: "short", dim: 2, short: true}
	good := &stubProvider{name: "good", dim: 2}
	chain := NewChain([]Provider{short, good})

	out, err := chain.EmbedMany(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 1, chain.Current())
}

func TestChainReturnsZeroVectorsWhenAllFail(t *testing.T) {
	m := metrics.New()
	chain := NewChain([]Provider{
		&stubProvider{name: "a", dim: 8, err: errors.New("x")},
		&stubProvider{name: "b", dim: 8, err: ErrQuotaExceeded},
	}, WithMetrics(m))

	out, err := chain.EmbedMany(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, v := range out {
		assert.Len(t, v, 8)
		assert.Equal(t, make([]float32, 8), v)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingExhausted))
}

func TestChainDimension(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewChain(nil).Dimension())
	assert.Equal(t, 384, NewChain([]Provider{&stubProvider{dim: 384}}).Dimension())
	assert.Equal(t, 16, NewChain([]Provider{&stubProvider{dim: 384}}, WithDimension(16)).Dimension())

	out, err := NewChain(nil).EmbedOne(context.Background(), "empty chain")
	require.NoError(t, err)
	assert.Len(t, out, DefaultDimension)
}

func TestChainNormalizesProviderDimension(t *testing.T) {
	chain := NewChain([]Provider{&stubProvider{name: "wide", dim: 6}}, WithDimension(4))
	out, err := chain.EmbedOne(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, out)
}

func TestChainEmptyInput(t *testing.T) {
	p := &stubProvider{name: "p", dim: 2}
	out, err := NewChain([]Provider{p}).EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, p.calls)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewChain([]Provider{&stubProvider{dim: 2}}).EmbedMany(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureFallback(t *testing.T) {
	base := []Provider{&stubProvider{name: "p", dim: 2}}
	withHash := EnsureFallback(base, 32)
	require.Len(t, withHash, 2)
	assert.IsType(t, &HashProvider{}, withHash[1])
	assert.Len(t, base, 1)

	assert.Len(t, EnsureFallback(withHash, 32), 2)
}

func TestNormalizeDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	assert.Equal(t, []float32{1, 2}, NormalizeDimension(src, 2))
	assert.Equal(t, []float32{1, 2, 3, 0, 0}, NormalizeDimension(src, 5))

	same := NormalizeDimension(src, 3)
	same[0] = 9
	assert.Equal(t, float32(1), src[0])
}
