package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// QueryVectorCache memoizes query embeddings as little-endian float32 blobs.
type QueryVectorCache struct {
	client *redisv9.Client
	ttl    time.Duration
	model  string
}

// NewQueryVectorCache scopes keys by the configured model and by the provider
// that produced each vector.
func NewQueryVectorCache(client *redisv9.Client, model string, ttl time.Duration) *QueryVectorCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &QueryVectorCache{client: client, ttl: ttl, model: model}
}

func (c *QueryVectorCache) GetQueryVector(ctx context.Context, provider, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.key(provider, text)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get query vector failed: %w", err)
	}
	v, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *QueryVectorCache) SetQueryVector(ctx context.Context, provider, text string, vector []float32) error {
	if err := c.client.Set(ctx, c.key(provider, text), encodeVector(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set query vector failed: %w", err)
	}
	return nil
}

func (c *QueryVectorCache) key(provider, text string) string {
	return fmt.Sprintf("qvec:%s:%s:%s", c.model, provider, digest(text))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached query vector has invalid length %d", len(raw))
	}
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return v, nil
}
