// Package langdetect identifies the language of document text.
package langdetect

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const (
	Undetected = "undetected"

	minInputChars   = 20
	defaultMemoSize = 1000
)

// Result is a detected ISO 639-1 code with a confidence in [0,1].
type Result struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

// Store is an optional shared cache consulted after the in-process memo.
type Store interface {
	GetLanguage(ctx context.Context, text string) (Result, bool, error)
	SetLanguage(ctx context.Context, text string, r Result) error
}

// Detector memoizes detections per exact input string.
type Detector struct {
	memo  *lru.Cache[string, Result]
	store Store
	log   zerolog.Logger
}

type Option func(*Detector)

// WithStore adds a second-level cache such as Redis.
func WithStore(s Store) Option {
	return func(d *Detector) { d.store = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Detector) { d.log = l }
}

func New(opts ...Option) *Detector {
	memo, _ := lru.New[string, Result](defaultMemoSize)
	d := &Detector{memo: memo, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns Undetected for inputs shorter than 20 characters. Cache
// failures are logged and never returned.
func (d *Detector) Detect(ctx context.Context, text string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minInputChars {
		return Result{Code: Undetected}
	}
	if r, ok := d.memo.Get(text); ok {
		return r
	}

	if d.store != nil {
		r, ok, err := d.store.GetLanguage(ctx, text)
		if err != nil {
			d.log.Warn().Err(err).Msg("language cache lookup failed")
		} else if ok {
			d.memo.Add(text, r)
			return r
		}
	}

	r := detect(text)
	d.memo.Add(text, r)
	if d.store != nil {
		if err := d.store.SetLanguage(ctx, text, r); err != nil {
			d.log.Warn().Err(err).Msg("language cache write failed")
		}
	}
	return r
}

func detect(text string) Result {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return Result{Code: Undetected}
	}
	confidence := info.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Result{Code: code, Confidence: confidence}
}
