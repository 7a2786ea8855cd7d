package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Article 2 applies."}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(0)
	out, err := client.Complete(context.Background(), ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "key", Model: "gpt-test"},
		[]ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Article 2 applies.", out)
}

func TestCompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient(0).Complete(context.Background(), ChatConfig{BaseURL: srv.URL}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, IsQuotaError(err))
	assert.False(t, IsRateLimitError(err))
	assert.Equal(t, CompletionUnavailable, ClassifyCompletionError(err))
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", " "}, body.Input)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAICompatibleClient(0).EmbedBatch(context.Background(), EmbeddingConfig{BaseURL: srv.URL}, []string{"a", "  "})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}

func TestErrorClassification(t *testing.T) {
	assert.Equal(t, CompletionOK, ClassifyCompletionError(nil))
	assert.Equal(t, CompletionUnavailable, ClassifyCompletionError(&APIError{StatusCode: 503, Body: "down"}))
	assert.Equal(t, CompletionUnavailable, ClassifyCompletionError(errors.New("model is overloaded")))
	assert.Equal(t, CompletionFailed, ClassifyCompletionError(errors.New("connection reset")))

	assert.True(t, IsRateLimitError(&APIError{StatusCode: 429, Body: "slow down"}))
	assert.True(t, IsRateLimitError(errors.New("Rate limit reached for requests")))
	assert.False(t, IsRateLimitError(errors.New("invalid api key")))
	assert.True(t, IsQuotaError(errors.New(`{"code":"insufficient_quota"}`)))
}
