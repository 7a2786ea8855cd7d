// Package embedding turns text into vectors through an ordered chain of providers.
package embedding

import (
	"context"
	"errors"
	"math"
)

// DefaultDimension is the chain dimension when neither config nor providers declare one.
const DefaultDimension = 3072

var (
	ErrProviderFailure = errors.New("embedding provider failed")
	ErrQuotaExceeded   = errors.New("embedding quota exceeded")
	ErrRateLimited     = errors.New("embedding rate limit retries exhausted")
)

// Provider embeds text. EmbedMany returns one vector per input, in order.
type Provider interface {
	Name() string
	Dimension() int
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// NormalizeDimension returns a copy of v truncated or zero-padded to dim.
func NormalizeDimension(v []float32, dim int) []float32 {
	if dim < 0 {
		dim = 0
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func zeroVectors(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
	}
	return out
}
