package opinion

import (
	"time"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// DetectBatchResponse aggregates per-item detections.
type DetectBatchResponse struct {
	Results           []entities.Detection `json:"results"`
	TotalWithOpinions int                  `json:"total_with_opinions"`
}

// ChunkResponse is the stored detection for one chunk.
type ChunkResponse struct {
	ChunkID      string            `json:"chunk_id"`
	Start        float64           `json:"start"`
	End          float64           `json:"end"`
	Persons      []string          `json:"persons"`
	HasOpinion   bool              `json:"has_opinion"`
	Targets      []string          `json:"targets"`
	OpinionSpans []string          `json:"opinion_spans"`
	Polarity     entities.Polarity `json:"polarity"`
	Confidence   float64           `json:"confidence"`
	CreatedAt    time.Time         `json:"created_at"`
}

// FromStored converts a stored detection row into the response shape.
func FromStored(row *entities.StoredDetection) ChunkResponse {
	return ChunkResponse{
		ChunkID:      row.ChunkID,
		Start:        row.Start,
		End:          row.End,
		Persons:      entities.UnmarshalStringList(row.Persons),
		HasOpinion:   row.HasOpinion,
		Targets:      entities.UnmarshalStringList(row.Targets),
		OpinionSpans: entities.UnmarshalStringList(row.Spans),
		Polarity:     row.Polarity,
		Confidence:   row.Confidence,
		CreatedAt:    row.CreatedAt,
	}
}
