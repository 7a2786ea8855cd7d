package embedding

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"jurisrag/internal/ai"
	"jurisrag/internal/metrics"
)

const (
	remoteBatchSize  = 100
	maxRetryDelay    = 60 * time.Second
	defaultRetries   = 3
	defaultRemoteRPS = 5.0
)

var modelDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// ModelDimension returns the native vector size of an embedding model.
func ModelDimension(model string) int {
	if d, ok := modelDimensions[model]; ok {
		return d
	}
	return DefaultDimension
}

type embedBatcher interface {
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

// RemoteConfig configures an OpenAI-compatible embedding endpoint.
type RemoteConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	MaxRetries        int
	RequestsPerSecond float64
}

// RemoteProvider calls an OpenAI-compatible /embeddings endpoint with client-side
// rate limiting and exponential backoff.
type RemoteProvider struct {
	client  embedBatcher
	cfg     ai.EmbeddingConfig
	dim     int
	retries int
	limiter *rate.Limiter
	log     zerolog.Logger
	metrics *metrics.Metrics

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

func NewRemoteProvider(client *ai.OpenAICompatibleClient, cfg RemoteConfig, log zerolog.Logger, m *metrics.Metrics) *RemoteProvider {
	return newRemoteProvider(client, cfg, log, m)
}

func newRemoteProvider(client embedBatcher, cfg RemoteConfig, log zerolog.Logger, m *metrics.Metrics) *RemoteProvider {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultRetries
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRemoteRPS
	}
	return &RemoteProvider{
		client: client,
		cfg: ai.EmbeddingConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		},
		dim:     ModelDimension(cfg.Model),
		retries: retries,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
		metrics: m,
		sleep:   sleepContext,
		jitter:  rand.Float64,
	}
}

func (p *RemoteProvider) Name() string   { return "remote:" + p.cfg.Model }
func (p *RemoteProvider) Dimension() int { return p.dim }

func (p *RemoteProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no vector returned", ErrProviderFailure)
	}
	return out[0], nil
}

// EmbedMany sends texts in batches of 100. A quota error aborts immediately.
func (p *RemoteProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += remoteBatchSize {
		end := min(start+remoteBatchSize, len(texts))
		vectors, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (p *RemoteProvider) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < p.retries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vectors, err := p.client.EmbedBatch(ctx, p.cfg, batch)
		if err == nil {
			return vectors, nil
		}
		if ai.IsQuotaError(err) {
			p.log.Error().Err(err).Str("model", p.cfg.Model).Msg("embedding quota exceeded")
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if attempt == p.retries-1 {
			break
		}

		delay := p.backoff(attempt)
		p.log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("embedding request failed, retrying")
		if p.metrics != nil {
			p.metrics.EmbeddingRetries.WithLabelValues(p.Name()).Inc()
		}
		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	if ai.IsRateLimitError(lastErr) {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrRateLimited, p.retries, lastErr)
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrProviderFailure, p.retries, lastErr)
}

func (p *RemoteProvider) backoff(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt)) + p.jitter()
	d := time.Duration(secs * float64(time.Second))
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

