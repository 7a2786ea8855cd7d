package embedding

import (
	"context"
	"crypto/md5"
	"math/big"
	"strings"
)

// HashDefaultDimension is used when NewHashProvider gets a non-positive dimension.
const HashDefaultDimension = 1536

var hashScale = big.NewInt(10000)

// HashProvider derives deterministic vectors from word and character trigram hashes.
// It needs no network or model files, so it is the last link of every chain.
type HashProvider struct {
	dim int
}

func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = HashDefaultDimension
	}
	return &HashProvider{dim: dim}
}

func (h *HashProvider) Name() string   { return "hash" }
func (h *HashProvider) Dimension() int { return h.dim }

func (h *HashProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

func (h *HashProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashProvider) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return vec
	}

	tokens := strings.Fields(text)
	runes := []rune(text)
	for i := 0; i+3 <= len(runes); i++ {
		tokens = append(tokens, string(runes[i:i+3]))
	}

	dim := big.NewInt(int64(h.dim))
	var n, pos, val big.Int
	for _, tok := range tokens {
		sum := md5.Sum([]byte(tok))
		n.SetBytes(sum[:])
		pos.Mod(&n, dim)
		val.Mod(&n, hashScale)
		vec[pos.Int64()] += float32(val.Int64()) / 10000
	}
	return l2Normalize(vec)
}
