package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRunConfig(t *testing.T) {
	t.Run("Default values", func(t *testing.T) {
		config := DefaultRunConfig()

		assert.NotEqual(t, uuid.Nil, config.RunID, "Expected a generated run id")
		assert.Empty(t, config.Keywords)
		assert.Greater(t, config.Workers, 0)
		assert.Equal(t, 100_000, config.LookupCacheSize)
	})

	t.Run("Every call generates a new run id", func(t *testing.T) {
		assert.NotEqual(t, DefaultRunConfig().RunID, DefaultRunConfig().RunID)
	})

	t.Run("Keyword set", func(t *testing.T) {
		config := DefaultRunConfig()
		config.Keywords = []string{"flood", "rain", "flood"}

		set := config.KeywordSet()
		assert.Len(t, set, 2)
		assert.True(t, set.Has("rain"))
	})
}
