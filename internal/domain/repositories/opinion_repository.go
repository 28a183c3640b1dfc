package repositories

import (
	"context"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// OpinionRepository defines persistence for per-chunk opinion detections,
// keyed by chunk_id (insert-or-replace, never delete).
type OpinionRepository interface {
	UpsertDetection(ctx context.Context, detection *entities.StoredDetection) error
	GetDetection(ctx context.Context, chunkID string) (*entities.StoredDetection, error)
}
