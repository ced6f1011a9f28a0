package model

import (
	"time"

	"github.com/google/uuid"
)

// FeatureRow is the feature vector of one directed edge. Values are ordered
// like the columns of the run that produced the row.
type FeatureRow struct {
	SrcID  string    `json:"src_id"`
	DestID string    `json:"dest_id"`
	Label  int       `json:"label"`
	Values []float64 `json:"values"`
}

// FeatureRun describes a persisted feature table
type FeatureRun struct {
	ID        uuid.UUID `json:"id"`
	Columns   []string  `json:"columns"`
	Keywords  []string  `json:"keywords"`
	RowCount  int       `json:"row_count"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
