package repositories

import (
	"context"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// SegmentRepository defines persistence operations for boundary segments
// and Q&A blocks. Reprocessing a video replaces its prior rows wholesale,
// so both unit kinds expose delete-by-video alongside the upserts.
type SegmentRepository interface {
	// Boundaries
	UpsertBoundary(ctx context.Context, boundary *entities.StoredBoundarySegment) error
	GetBoundaries(ctx context.Context, videoID string) ([]entities.StoredBoundarySegment, error)
	DeleteBoundaries(ctx context.Context, videoID string) error

	// Blocks
	UpsertBlock(ctx context.Context, block *entities.StoredQABlock) error
	GetBlocks(ctx context.Context, videoID string) ([]entities.StoredQABlock, error)
	DeleteBlocks(ctx context.Context, videoID string) error
}

// ExportRepository defines persistence for the per-video export document.
// Pure upsert keyed by video_id; a new export supersedes the prior one
// silently, there is no delete path.
type ExportRepository interface {
	UpsertExport(ctx context.Context, export *entities.StoredExport) error
	GetExport(ctx context.Context, videoID string) (*entities.StoredExport, error)
}
