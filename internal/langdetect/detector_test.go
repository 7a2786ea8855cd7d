package langdetect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	data   map[string]Result
	gets   int
	sets   int
	getErr error
}

func (f *fakeStore) GetLanguage(_ context.Context, text string) (Result, bool, error) {
	f.gets++
	if f.getErr != nil {
		return Result{}, false, f.getErr
	}
	r, ok := f.data[text]
	return r, ok, nil
}

func (f *fakeStore) SetLanguage(_ context.Context, text string, r Result) error {
	f.sets++
	f.data[text] = r
	return nil
}

func TestShortInputUndetected(t *testing.T) {
	d := New()
	r := d.Detect(context.Background(), "  short text  ")
	assert.Equal(t, Undetected, r.Code)
	assert.Zero(t, r.Confidence)
}

func TestDetectEnglish(t *testing.T) {
	d := New()
	r := d.Detect(context.Background(), "The parties shall perform their obligations in good faith and in accordance with the law.")
	assert.Equal(t, "en", r.Code)
	assert.GreaterOrEqual(t, r.Confidence, 0.0)
	assert.LessOrEqual(t, r.Confidence, 1.0)
}

func TestDetectMemoizesAndUsesStore(t *testing.T) {
	store := &fakeStore{data: map[string]Result{}}
	d := New(WithStore(store))
	text := "Der Vertrag tritt mit der Unterzeichnung durch beide Parteien in Kraft."

	first := d.Detect(context.Background(), text)
	second := d.Detect(context.Background(), text)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.sets)

	// a fresh detector picks the value from the shared store
	other := New(WithStore(store))
	store.data[text] = Result{Code: "xx", Confidence: 0.5}
	assert.Equal(t, "xx", other.Detect(context.Background(), text).Code)
}

func TestStoreErrorsAreAbsorbed(t *testing.T) {
	store := &fakeStore{data: map[string]Result{}, getErr: errors.New("redis down")}
	d := New(WithStore(store))
	r := d.Detect(context.Background(), "This agreement is governed by the laws of the Republic.")
	assert.NotEqual(t, "", r.Code)
}
