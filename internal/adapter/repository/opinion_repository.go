package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	repo "github.com/akozyrev/transcript-analyzer/internal/domain/repositories"
)

type opinionRepository struct {
	db *gorm.DB
}

// NewOpinionRepository creates a new opinion repository backed by GORM
func NewOpinionRepository(db *gorm.DB) repo.OpinionRepository {
	return &opinionRepository{db: db}
}

func (r *opinionRepository) UpsertDetection(ctx context.Context, d *entities.StoredDetection) error {
	q := `INSERT INTO opinion_detections (chunk_id, "start", "end", persons, has_opinion, targets, spans, polarity, confidence, created_at)
        VALUES (?, ?, ?, ?::jsonb, ?, ?::jsonb, ?::jsonb, ?, ?, ?)
        ON CONFLICT (chunk_id) DO UPDATE SET "start" = EXCLUDED."start", "end" = EXCLUDED."end", persons = EXCLUDED.persons, has_opinion = EXCLUDED.has_opinion, targets = EXCLUDED.targets, spans = EXCLUDED.spans, polarity = EXCLUDED.polarity, confidence = EXCLUDED.confidence, created_at = EXCLUDED.created_at`

	return r.db.WithContext(ctx).Exec(q, d.ChunkID, d.Start, d.End, string(d.Persons), d.HasOpinion, string(d.Targets), string(d.Spans), d.Polarity, d.Confidence, d.CreatedAt).Error
}

func (r *opinionRepository) GetDetection(ctx context.Context, chunkID string) (*entities.StoredDetection, error) {
	var detection entities.StoredDetection
	err := r.db.WithContext(ctx).
		Where("chunk_id = ?", chunkID).
		First(&detection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &detection, nil
}
