package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: "info", Output: &buf}), "extract")

	log.Info().Msg("hello")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "jurisrag", event["service"])
	assert.Equal(t, "extract", event["component"])
	assert.Equal(t, "hello", event["message"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	LogStage(log, "chunk", "doc-1", time.Millisecond, errors.New("boom"))
	assert.Contains(t, buf.String(), `"stage":"chunk"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
