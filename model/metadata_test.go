package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata(t *testing.T) {
	t.Run("Round trips through JSON", func(t *testing.T) {
		original := Metadata{
			MetadataKeywords: []string{"alpha", "beta"},
			"page_count":     float64(12),
		}
		data, err := original.Marshal()
		require.NoError(t, err, "Expected marshal to succeed")

		var restored Metadata
		require.NoError(t, restored.Scan(data), "Expected scan from bytes to succeed")
		assert.Equal(t, []string{"alpha", "beta"}, restored.StringList(MetadataKeywords), "Expected keywords restored")
		assert.Equal(t, float64(12), restored["page_count"], "Expected scalar restored")
	})

	t.Run("Scan of nil yields empty metadata", func(t *testing.T) {
		var m Metadata
		require.NoError(t, m.Scan(nil), "Expected nil scan to succeed")
		assert.NotNil(t, m, "Expected an empty map, not nil")
		assert.Empty(t, m)
	})

	t.Run("Scan rejects unexpected types", func(t *testing.T) {
		var m Metadata
		assert.Error(t, m.Scan(42), "Expected non-byte values rejected")
	})
}

func TestStringList(t *testing.T) {
	t.Run("Handles native string slices", func(t *testing.T) {
		m := Metadata{MetadataTopics: []string{"a", "b"}}
		assert.Equal(t, []string{"a", "b"}, m.StringList(MetadataTopics))
	})

	t.Run("Handles decoded interface slices", func(t *testing.T) {
		m := Metadata{MetadataTopics: []interface{}{"a", 7, "b"}}
		assert.Equal(t, []string{"a", "b"}, m.StringList(MetadataTopics), "Expected non-strings skipped")
	})

	t.Run("Missing key yields nil", func(t *testing.T) {
		m := Metadata{}
		assert.Nil(t, m.StringList(MetadataKeywords))
	})
}
