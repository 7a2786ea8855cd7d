package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalDocumentMetadata(t *testing.T) {
	var d LegalDocument
	assert.Empty(t, d.MetadataMap())

	require.NoError(t, d.SetMetadata(map[string]any{"law_number": "12/2020", "section_count": 3}))
	m := d.MetadataMap()
	assert.Equal(t, "12/2020", m["law_number"])
	assert.Equal(t, float64(3), m["section_count"])

	require.NoError(t, d.SetMetadata(nil))
	assert.Equal(t, "{}", string(d.Metadata))
}
