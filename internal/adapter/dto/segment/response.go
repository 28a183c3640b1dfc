package segment

import (
	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// BoundaryResponse is the Pass 1 result.
type BoundaryResponse struct {
	VideoID  string                           `json:"video_id"`
	Segments []entities.StoredBoundarySegment `json:"segments"`
}

// BlocksResponse is the Pass 2 result for one qa region.
type BlocksResponse struct {
	VideoID  string                   `json:"video_id"`
	QABlocks []entities.StoredQABlock `json:"qa_blocks"`
}

// SegmentsResponse is the combined pipeline result, also used for reads.
type SegmentsResponse struct {
	VideoID          string                           `json:"video_id"`
	BoundarySegments []entities.StoredBoundarySegment `json:"boundary_segments"`
	QABlocks         []entities.StoredQABlock         `json:"qa_blocks"`
}

// ExportResponse carries the stored export document plus the artifact
// location when one exists.
type ExportResponse struct {
	VideoID  string                   `json:"video_id"`
	Export   *entities.ExportDocument `json:"export"`
	FilePath string                   `json:"file_path,omitempty"`
}
