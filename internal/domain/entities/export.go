package entities

import (
	"time"

	"gorm.io/datatypes"
)

// ExportBoundary is the denormalized boundary segment shape inside an
// export document. No nested utterances, only derived scalar fields.
type ExportBoundary struct {
	SegID      string      `json:"seg_id"`
	Type       SegmentType `json:"type"`
	Start      float64     `json:"start"`
	End        float64     `json:"end"`
	StartU     int         `json:"start_u"`
	EndU       int         `json:"end_u"`
	Confidence float64     `json:"confidence"`
	Notes      string      `json:"notes,omitempty"`
}

// ExportBlock is the denormalized Q&A block shape inside an export document.
type ExportBlock struct {
	BlockID       string   `json:"block_id"`
	Start         float64  `json:"start"`
	End           float64  `json:"end"`
	StartU        int      `json:"start_u"`
	EndU          int      `json:"end_u"`
	Questions     []string `json:"questions"`
	AnswerSummary string   `json:"answer_summary"`
	Confidence    float64  `json:"confidence"`
	Text          string   `json:"text"`
}

// ExportDocument is the full denormalized segmentation result for one video,
// persisted as a queryable record and written out as a flat JSON artifact.
type ExportDocument struct {
	VideoID          string           `json:"video_id"`
	BoundarySegments []ExportBoundary `json:"boundary_segments"`
	QABlocks         []ExportBlock    `json:"qa_blocks"`
	CreatedAt        string           `json:"created_at"`
}

// StoredExport is the persisted export row, keyed by video_id. The document
// supersedes any prior export for the video silently (pure upsert).
type StoredExport struct {
	VideoID   string         `gorm:"column:video_id;primaryKey"`
	Document  datatypes.JSON `gorm:"column:document;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (StoredExport) TableName() string {
	return "qa_exports"
}
