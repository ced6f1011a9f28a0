package model

import (
	"runtime"

	"github.com/google/uuid"
)

// RunConfig represents the configuration of one feature building run
type RunConfig struct {
	// RunID identifies the produced feature table rows
	RunID uuid.UUID `json:"run_id"`

	// Topic keywords matched against the keywords seen per account
	Keywords []string `json:"keywords"`

	// Concurrency parameters
	Workers int `json:"workers"` // Parallel tasks per stage

	// Size of the LRU cache for referenced post lookups, 0 disables it
	LookupCacheSize int `json:"lookup_cache_size"`
}

// DefaultRunConfig returns a configuration with a fresh run id
func DefaultRunConfig() RunConfig {
	return RunConfig{
		RunID:           uuid.New(),
		Keywords:        nil,
		Workers:         runtime.GOMAXPROCS(0),
		LookupCacheSize: 100_000,
	}
}

// KeywordSet returns the keywords as a set
func (c *RunConfig) KeywordSet() StringSet {
	return NewStringSet(c.Keywords...)
}
