package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	repo "github.com/akozyrev/transcript-analyzer/internal/domain/repositories"
)

type segmentRepository struct {
	db *gorm.DB
}

// NewSegmentRepository creates a new segment repository backed by GORM
func NewSegmentRepository(db *gorm.DB) repo.SegmentRepository {
	return &segmentRepository{db: db}
}

func (r *segmentRepository) UpsertBoundary(ctx context.Context, b *entities.StoredBoundarySegment) error {
	// "end" is a reserved word, keep it quoted
	q := `INSERT INTO qa_boundaries (video_id, seg_id, type, start_u, end_u, "start", "end", confidence, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (video_id, seg_id) DO UPDATE SET type = EXCLUDED.type, start_u = EXCLUDED.start_u, end_u = EXCLUDED.end_u, "start" = EXCLUDED."start", "end" = EXCLUDED."end", confidence = EXCLUDED.confidence, notes = EXCLUDED.notes, created_at = EXCLUDED.created_at`

	return r.db.WithContext(ctx).Exec(q, b.VideoID, b.SegID, b.Type, b.StartU, b.EndU, b.Start, b.End, b.Confidence, b.Notes, b.CreatedAt).Error
}

func (r *segmentRepository) GetBoundaries(ctx context.Context, videoID string) ([]entities.StoredBoundarySegment, error) {
	var boundaries []entities.StoredBoundarySegment
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("start_u ASC").
		Find(&boundaries).Error
	if err != nil {
		return nil, err
	}
	return boundaries, nil
}

func (r *segmentRepository) DeleteBoundaries(ctx context.Context, videoID string) error {
	return r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Delete(&entities.StoredBoundarySegment{}).Error
}

func (r *segmentRepository) UpsertBlock(ctx context.Context, b *entities.StoredQABlock) error {
	q := `INSERT INTO qa_blocks (video_id, block_id, start_u, end_u, "start", "end", questions, answer_summary, confidence, text, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?::jsonb, ?, ?, ?, ?)
        ON CONFLICT (video_id, block_id) DO UPDATE SET start_u = EXCLUDED.start_u, end_u = EXCLUDED.end_u, "start" = EXCLUDED."start", "end" = EXCLUDED."end", questions = EXCLUDED.questions, answer_summary = EXCLUDED.answer_summary, confidence = EXCLUDED.confidence, text = EXCLUDED.text, created_at = EXCLUDED.created_at`

	return r.db.WithContext(ctx).Exec(q, b.VideoID, b.BlockID, b.StartU, b.EndU, b.Start, b.End, string(b.Questions), b.AnswerSummary, b.Confidence, b.Text, b.CreatedAt).Error
}

func (r *segmentRepository) GetBlocks(ctx context.Context, videoID string) ([]entities.StoredQABlock, error) {
	var blocks []entities.StoredQABlock
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("start_u ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *segmentRepository) DeleteBlocks(ctx context.Context, videoID string) error {
	return r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Delete(&entities.StoredQABlock{}).Error
}
