package entities

import (
	"fmt"
	"time"
)

// SegmentType classifies a boundary segment as monologue or Q&A content.
type SegmentType string

const (
	SegmentTypeNarrative SegmentType = "narrative"
	SegmentTypeQA        SegmentType = "qa"
)

// IsValid reports whether the type is one of the recognized enum values.
func (t SegmentType) IsValid() bool {
	return t == SegmentTypeNarrative || t == SegmentTypeQA
}

// BoundarySegment is a contiguous narrative-or-qa region over the utterance
// index space, produced by the boundary pass. StartU/EndU are inclusive.
type BoundarySegment struct {
	Type       SegmentType `json:"type"`
	StartU     int         `json:"start_u"`
	EndU       int         `json:"end_u"`
	Confidence float64     `json:"confidence"`
	Notes      string      `json:"notes,omitempty"`
}

// StoredBoundarySegment is the persisted form of a boundary segment with the
// position-assigned seg_id and derived wall-clock times.
type StoredBoundarySegment struct {
	VideoID    string      `json:"-" gorm:"column:video_id;primaryKey"`
	SegID      string      `json:"seg_id" gorm:"column:seg_id;primaryKey"`
	Type       SegmentType `json:"type" gorm:"column:type"`
	StartU     int         `json:"start_u" gorm:"column:start_u"`
	EndU       int         `json:"end_u" gorm:"column:end_u"`
	Start      float64     `json:"start" gorm:"column:start"`
	End        float64     `json:"end" gorm:"column:end"`
	Confidence float64     `json:"confidence" gorm:"column:confidence"`
	Notes      string      `json:"notes,omitempty" gorm:"column:notes"`
	CreatedAt  time.Time   `json:"created_at" gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (StoredBoundarySegment) TableName() string {
	return "qa_boundaries"
}

// SegID formats the position-based boundary segment identifier, e.g. seg_007.
func SegID(position int) string {
	return fmt.Sprintf("seg_%03d", position)
}

// BlockID formats the position-based block identifier, e.g. qa_012.
func BlockID(position int) string {
	return fmt.Sprintf("qa_%03d", position)
}
