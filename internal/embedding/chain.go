package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"jurisrag/internal/metrics"
)

// Chain tries providers in order, starting at the last one that succeeded.
// It never returns an error for provider failures: when every provider fails the
// caller gets zero vectors of the chain dimension.
type Chain struct {
	providers []Provider
	dimension int
	current   atomic.Int64
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

type ChainOption func(*Chain)

func WithLogger(l zerolog.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// WithDimension fixes the output dimension. Zero means derive it from the first provider.
func WithDimension(dim int) ChainOption {
	return func(c *Chain) { c.dimension = dim }
}

// NewChain builds a chain over providers. The order is the failover order.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dimension <= 0 {
		c.dimension = DefaultDimension
		if len(providers) > 0 && providers[0].Dimension() > 0 {
			c.dimension = providers[0].Dimension()
		}
	}
	return c
}

// EnsureFallback returns providers with a HashProvider appended unless one is already last.
func EnsureFallback(providers []Provider, dim int) []Provider {
	if n := len(providers); n > 0 {
		if _, ok := providers[n-1].(*HashProvider); ok {
			return providers
		}
	}
	out := make([]Provider, 0, len(providers)+1)
	out = append(out, providers...)
	return append(out, NewHashProvider(dim))
}

func (c *Chain) Name() string   { return "chain" }
func (c *Chain) Dimension() int { return c.dimension }

// Current is the index of the provider that will be tried first.
func (c *Chain) Current() int { return int(c.current.Load()) }

// ActiveProvider names the provider that will be tried first.
func (c *Chain) ActiveProvider() string {
	if len(c.providers) == 0 {
		return ""
	}
	return c.providers[c.Current()].Name()
}

func (c *Chain) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedMany returns len(texts) vectors, each exactly Dimension() long.
// Only context cancellation is reported as an error.
func (c *Chain) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.metrics != nil {
		c.metrics.EmbeddingBatchTexts.Observe(float64(len(texts)))
	}
	n := len(c.providers)
	start := int(c.current.Load())
	for attempt := 0; attempt < n; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := (start + attempt) % n
		p := c.providers[idx]

		vectors, err := p.EmbedMany(ctx, texts)
		if err == nil && len(vectors) != len(texts) {
			err = fmt.Errorf("%w: %s returned %d vectors for %d texts", ErrProviderFailure, p.Name(), len(vectors), len(texts))
		}
		if err == nil && emptyResult(vectors) {
			err = fmt.Errorf("%w: %s returned an empty vector", ErrProviderFailure, p.Name())
		}
		if err != nil {
			c.log.Warn().Err(err).Str("provider", p.Name()).Int("texts", len(texts)).Msg("embedding provider failed, trying next")
			c.observe(p.Name(), "failure")
			continue
		}

		c.current.Store(int64(idx))
		c.observe(p.Name(), "success")
		out := make([][]float32, len(vectors))
		for i, v := range vectors {
			out[i] = NormalizeDimension(v, c.dimension)
		}
		return out, nil
	}

	c.log.Error().Int("providers", n).Int("texts", len(texts)).Msg("all embedding providers failed, returning zero vectors")
	if c.metrics != nil {
		c.metrics.EmbeddingExhausted.Inc()
	}
	return zeroVectors(len(texts), c.dimension), nil
}

func (c *Chain) observe(provider, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.EmbeddingCalls.WithLabelValues(provider, outcome).Inc()
}

func emptyResult(vectors [][]float32) bool {
	for _, v := range vectors {
		if len(v) == 0 {
			return true
		}
	}
	return false
}
