package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"jurisrag/internal/langdetect"
)

// LanguageCache shares language detections between processes. Keys are hashes of the
// exact input text.
type LanguageCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewLanguageCache(client *redisv9.Client, ttl time.Duration) *LanguageCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LanguageCache{client: client, ttl: ttl}
}

func (c *LanguageCache) GetLanguage(ctx context.Context, text string) (langdetect.Result, bool, error) {
	raw, err := c.client.Get(ctx, languageKey(text)).Bytes()
	if err == redisv9.Nil {
		return langdetect.Result{}, false, nil
	}
	if err != nil {
		return langdetect.Result{}, false, fmt.Errorf("redis get language failed: %w", err)
	}

	var r langdetect.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return langdetect.Result{}, false, fmt.Errorf("unmarshal cached language failed: %w", err)
	}
	return r, true, nil
}

func (c *LanguageCache) SetLanguage(ctx context.Context, text string, r langdetect.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal language cache failed: %w", err)
	}
	if err := c.client.Set(ctx, languageKey(text), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set language failed: %w", err)
	}
	return nil
}

func languageKey(text string) string {
	return "lang:" + digest(text)
}

func digest(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
