package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	repo "github.com/akozyrev/transcript-analyzer/internal/domain/repositories"
)

type exportRepository struct {
	db *gorm.DB
}

// NewExportRepository creates a new export repository backed by GORM
func NewExportRepository(db *gorm.DB) repo.ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) UpsertExport(ctx context.Context, e *entities.StoredExport) error {
	q := `INSERT INTO qa_exports (video_id, document, created_at)
        VALUES (?, ?::jsonb, ?)
        ON CONFLICT (video_id) DO UPDATE SET document = EXCLUDED.document, created_at = EXCLUDED.created_at`

	return r.db.WithContext(ctx).Exec(q, e.VideoID, string(e.Document), e.CreatedAt).Error
}

func (r *exportRepository) GetExport(ctx context.Context, videoID string) (*entities.StoredExport, error) {
	var export entities.StoredExport
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		First(&export).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &export, nil
}
