package segment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/akozyrev/transcript-analyzer/errors"
	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	"github.com/akozyrev/transcript-analyzer/internal/domain/repositories"
	"github.com/akozyrev/transcript-analyzer/internal/infrastructure/cache"
	"github.com/akozyrev/transcript-analyzer/internal/infrastructure/storage"
	"github.com/akozyrev/transcript-analyzer/pkg/ai"
	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

const (
	oracleAttempts = 3
	exportCacheTTL = 10 * time.Minute
)

// ExportCacheKey is the cache key for a video's export document.
func ExportCacheKey(videoID string) string {
	return "export:" + videoID
}

// Service runs the two-pass segmentation pipeline: a boundary pass over the
// whole transcript, then a block pass per qa region, with validation and
// repair between the oracle and the database on every pass. Oracle failures
// propagate after retries; there is no safe default partition.
type Service struct {
	oracle      ai.Oracle
	repo        repositories.SegmentRepository
	exportRepo  repositories.ExportRepository
	exportStore storage.ExportStore
	cache       cache.Store
	cfg         *config.OpenAIConfig
	logger      *zap.Logger
}

// RunResult is the combined output of one full pipeline run.
type RunResult struct {
	VideoID    string
	Boundaries []entities.StoredBoundarySegment
	Blocks     []entities.StoredQABlock
}

func NewService(
	oracle ai.Oracle,
	repo repositories.SegmentRepository,
	exportRepo repositories.ExportRepository,
	exportStore storage.ExportStore,
	cacheStore cache.Store,
	cfg *config.OpenAIConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		oracle:      oracle,
		repo:        repo,
		exportRepo:  exportRepo,
		exportStore: exportStore,
		cache:       cacheStore,
		cfg:         cfg,
		logger:      logger,
	}
}

// Policy declares how this capability behaves on exhausted oracle retries.
func (s *Service) Policy() FailurePolicy {
	return Propagate
}

// callOracle invokes the oracle with bounded retries and a per-call
// timeout. Only the invocation retries; validation and repair are pure and
// run once on the final response.
func (s *Service) callOracle(ctx context.Context, systemPrompt, userPrompt, model string) (json.RawMessage, error) {
	var out json.RawMessage

	op := func() error {
		callCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}
		raw, err := s.oracle.InferJSON(callCtx, systemPrompt, userPrompt, model)
		if err != nil {
			return err
		}
		out = raw
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, oracleAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// boundariesPass runs Pass 1 without persistence: prompt, oracle, validate,
// repair. The result is a non-empty ordered segment list covering oracle
// judgement, or an error after exhausted retries.
func (s *Service) boundariesPass(ctx context.Context, utterances []entities.Utterance, maxU int) ([]entities.BoundarySegment, error) {
	prompt := BuildBoundaryPrompt(utterances)

	raw, err := s.callOracle(ctx, SystemPromptSegmentation, prompt, s.cfg.Model)
	if err != nil {
		s.logger.Error("boundary pass oracle failure", zap.Error(err))
		return nil, apperrors.ErrOracleFailed("boundaries", err)
	}

	var envelope struct {
		Segments []json.RawMessage `json:"segments"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.ErrOracleBadJSON(err)
	}

	validated := ValidateBoundaries(envelope.Segments, 0, maxU, s.logger)
	return RepairBoundaries(validated, 0, maxU, s.logger), nil
}

// blocksPass runs Pass 2 for one qa region without persistence. The
// stronger blocks model is used: the region can carry tens of thousands of
// tokens and needs better instruction following than boundary detection.
func (s *Service) blocksPass(ctx context.Context, utterances []entities.Utterance, qaStart, qaEnd int) ([]entities.QABlock, error) {
	prompt := BuildBlocksPrompt(utterances, qaStart, qaEnd)

	raw, err := s.callOracle(ctx, SystemPromptSegmentation, prompt, s.cfg.BlocksModel)
	if err != nil {
		s.logger.Error("block pass oracle failure",
			zap.Int("qa_start", qaStart),
			zap.Int("qa_end", qaEnd),
			zap.Error(err),
		)
		return nil, apperrors.ErrOracleFailed("blocks", err)
	}

	var envelope struct {
		QABlocks []json.RawMessage `json:"qa_blocks"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.ErrOracleBadJSON(err)
	}

	validated := ValidateBlocks(envelope.QABlocks, qaStart, qaEnd, s.logger)
	blocks := RepairBlocks(validated, qaStart, qaEnd, s.logger)

	s.checkQuestionQuotes(blocks, utterances)

	return blocks, nil
}

// checkQuestionQuotes verifies that reported question quotes appear
// verbatim in their block's utterance text. Best effort only: a missing
// quote is logged and kept, since the system has no ground truth to
// arbitrate against the oracle.
func (s *Service) checkQuestionQuotes(blocks []entities.QABlock, utterances []entities.Utterance) {
	for _, block := range blocks {
		if len(block.Questions) == 0 {
			continue
		}
		text := entities.AssembleText(utterances, block.StartU, block.EndU)
		for _, q := range block.Questions {
			if q != "" && !strings.Contains(text, q) {
				preview := q
				if r := []rune(preview); len(r) > 50 {
					preview = string(r[:50])
				}
				s.logger.Warn("question quote not found verbatim in block text",
					zap.Int("start_u", block.StartU),
					zap.Int("end_u", block.EndU),
					zap.String("question", preview),
				)
			}
		}
	}
}

// resolveTimes looks up wall-clock times for a unit's index span. A miss is
// a defect worth noticing, not a silent default: it logs at error level and
// keeps the 0.0 sentinel for compatibility with stored rows.
func (s *Service) resolveTimes(utterances []entities.Utterance, startU, endU int, videoID, unitID string) (float64, float64) {
	start, end := 0.0, 0.0

	if u := entities.UtteranceByIndex(utterances, startU); u != nil {
		start = u.Start
	} else {
		s.logger.Error("no utterance at start index, storing 0.0 sentinel",
			zap.String("video_id", videoID),
			zap.String("unit_id", unitID),
			zap.Int("index", startU),
		)
	}

	if u := entities.UtteranceByIndex(utterances, endU); u != nil {
		end = u.End
	} else {
		s.logger.Error("no utterance at end index, storing 0.0 sentinel",
			zap.String("video_id", videoID),
			zap.String("unit_id", unitID),
			zap.Int("index", endU),
		)
	}

	return start, end
}

// storeBoundaries replaces a video's boundary rows with the given segments,
// assigning position-based seg ids and derived wall-clock times.
func (s *Service) storeBoundaries(ctx context.Context, videoID string, segments []entities.BoundarySegment, utterances []entities.Utterance) ([]entities.StoredBoundarySegment, error) {
	if err := s.repo.DeleteBoundaries(ctx, videoID); err != nil {
		return nil, apperrors.ErrDBQueryFailed("delete boundaries", err)
	}

	now := time.Now().UTC()
	stored := make([]entities.StoredBoundarySegment, 0, len(segments))

	for i, seg := range segments {
		segID := entities.SegID(i)
		start, end := s.resolveTimes(utterances, seg.StartU, seg.EndU, videoID, segID)

		row := entities.StoredBoundarySegment{
			VideoID:    videoID,
			SegID:      segID,
			Type:       seg.Type,
			StartU:     seg.StartU,
			EndU:       seg.EndU,
			Start:      start,
			End:        end,
			Confidence: seg.Confidence,
			Notes:      seg.Notes,
			CreatedAt:  now,
		}
		if err := s.repo.UpsertBoundary(ctx, &row); err != nil {
			return nil, apperrors.ErrDBQueryFailed("upsert boundary", err)
		}
		stored = append(stored, row)
	}

	return stored, nil
}

// storeBlocks replaces a video's block rows with the given blocks,
// assigning position-based block ids, derived times and span-joined text.
func (s *Service) storeBlocks(ctx context.Context, videoID string, blocks []entities.QABlock, utterances []entities.Utterance) ([]entities.StoredQABlock, error) {
	if err := s.repo.DeleteBlocks(ctx, videoID); err != nil {
		return nil, apperrors.ErrDBQueryFailed("delete blocks", err)
	}

	now := time.Now().UTC()
	stored := make([]entities.StoredQABlock, 0, len(blocks))

	for i, block := range blocks {
		blockID := entities.BlockID(i)
		start, end := s.resolveTimes(utterances, block.StartU, block.EndU, videoID, blockID)

		row := entities.StoredQABlock{
			VideoID:       videoID,
			BlockID:       blockID,
			StartU:        block.StartU,
			EndU:          block.EndU,
			Start:         start,
			End:           end,
			Questions:     entities.MarshalQuestions(block.Questions),
			AnswerSummary: block.AnswerSummary,
			Confidence:    block.Confidence,
			Text:          entities.AssembleText(utterances, block.StartU, block.EndU),
			CreatedAt:     now,
		}
		if err := s.repo.UpsertBlock(ctx, &row); err != nil {
			return nil, apperrors.ErrDBQueryFailed("upsert block", err)
		}
		stored = append(stored, row)
	}

	return stored, nil
}

// SegmentBoundaries is Pass 1 as a standalone operation: partition the full
// transcript into narrative and qa regions and persist the result,
// replacing any prior boundaries for the video.
func (s *Service) SegmentBoundaries(ctx context.Context, videoID string, utterances []entities.Utterance) ([]entities.StoredBoundarySegment, error) {
	if len(utterances) == 0 {
		return nil, apperrors.ErrEmptyTranscript()
	}

	maxU := entities.MaxIndex(utterances)
	segments, err := s.boundariesPass(ctx, utterances, maxU)
	if err != nil {
		return nil, err
	}

	return s.storeBoundaries(ctx, videoID, segments, utterances)
}

// SegmentBlocks is Pass 2 as a standalone operation over one qa region,
// persisting the result and replacing any prior blocks for the video.
func (s *Service) SegmentBlocks(ctx context.Context, videoID string, utterances []entities.Utterance, qaStart, qaEnd int) ([]entities.StoredQABlock, error) {
	if len(utterances) == 0 {
		return nil, apperrors.ErrEmptyTranscript()
	}

	blocks, err := s.blocksPass(ctx, utterances, qaStart, qaEnd)
	if err != nil {
		return nil, err
	}

	return s.storeBlocks(ctx, videoID, blocks, utterances)
}

// Run is the full pipeline: Pass 1 over the whole transcript, then Pass 2
// over each qa region. A failed block pass isolates to its region and
// contributes zero blocks. Surviving blocks are renumbered document-wide in
// segment order before persistence, and the run ends by building and
// persisting the export document.
func (s *Service) Run(ctx context.Context, videoID string, utterances []entities.Utterance) (*RunResult, error) {
	if len(utterances) == 0 {
		return nil, apperrors.ErrEmptyTranscript()
	}

	runID := uuid.New().String()
	logger := s.logger.With(
		zap.String("run_id", runID),
		zap.String("video_id", videoID),
	)
	logger.Info("starting segmentation pipeline", zap.Int("utterances", len(utterances)))

	maxU := entities.MaxIndex(utterances)
	segments, err := s.boundariesPass(ctx, utterances, maxU)
	if err != nil {
		return nil, err
	}

	boundaries, err := s.storeBoundaries(ctx, videoID, segments, utterances)
	if err != nil {
		return nil, err
	}

	// Pass 2 per qa region. Narrative segments never produce blocks.
	var allBlocks []entities.QABlock
	for _, seg := range segments {
		if seg.Type != entities.SegmentTypeQA {
			continue
		}

		subset := make([]entities.Utterance, 0)
		for _, u := range utterances {
			if u.Index >= seg.StartU && u.Index <= seg.EndU {
				subset = append(subset, u)
			}
		}
		if len(subset) == 0 {
			continue
		}

		blocks, err := s.blocksPass(ctx, subset, seg.StartU, seg.EndU)
		if err != nil {
			logger.Error("block pass failed for qa region, skipping",
				zap.Int("qa_start", seg.StartU),
				zap.Int("qa_end", seg.EndU),
				zap.Error(err),
			)
			continue
		}
		allBlocks = append(allBlocks, blocks...)
	}

	storedBlocks, err := s.storeBlocks(ctx, videoID, allBlocks, utterances)
	if err != nil {
		return nil, err
	}

	if err := s.saveExport(ctx, videoID, boundaries, storedBlocks, logger); err != nil {
		return nil, err
	}

	logger.Info("segmentation pipeline completed",
		zap.Int("boundaries", len(boundaries)),
		zap.Int("blocks", len(storedBlocks)),
	)

	return &RunResult{
		VideoID:    videoID,
		Boundaries: boundaries,
		Blocks:     storedBlocks,
	}, nil
}

// saveExport builds the denormalized export document, upserts it as a
// record, writes the flat artifact and invalidates the export cache.
func (s *Service) saveExport(ctx context.Context, videoID string, boundaries []entities.StoredBoundarySegment, blocks []entities.StoredQABlock, logger *zap.Logger) error {
	now := time.Now().UTC()

	doc := entities.ExportDocument{
		VideoID:          videoID,
		BoundarySegments: make([]entities.ExportBoundary, 0, len(boundaries)),
		QABlocks:         make([]entities.ExportBlock, 0, len(blocks)),
		CreatedAt:        now.Format(time.RFC3339),
	}

	for _, b := range boundaries {
		doc.BoundarySegments = append(doc.BoundarySegments, entities.ExportBoundary{
			SegID:      b.SegID,
			Type:       b.Type,
			Start:      b.Start,
			End:        b.End,
			StartU:     b.StartU,
			EndU:       b.EndU,
			Confidence: b.Confidence,
			Notes:      b.Notes,
		})
	}

	for _, b := range blocks {
		doc.QABlocks = append(doc.QABlocks, entities.ExportBlock{
			BlockID:       b.BlockID,
			Start:         b.Start,
			End:           b.End,
			StartU:        b.StartU,
			EndU:          b.EndU,
			Questions:     b.QuestionList(),
			AnswerSummary: b.AnswerSummary,
			Confidence:    b.Confidence,
			Text:          b.Text,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.ErrExportFailed(videoID, err)
	}

	record := entities.StoredExport{
		VideoID:   videoID,
		Document:  data,
		CreatedAt: now,
	}
	if err := s.exportRepo.UpsertExport(ctx, &record); err != nil {
		return apperrors.ErrDBQueryFailed("upsert export", err)
	}

	location, err := s.exportStore.Save(ctx, videoID, data)
	if err != nil {
		return apperrors.ErrExportFailed(videoID, err)
	}
	logger.Info("export saved", zap.String("location", location))

	s.cache.Delete(ctx, ExportCacheKey(videoID))

	return nil
}

// GetSegments returns the stored segmentation for a video.
func (s *Service) GetSegments(ctx context.Context, videoID string) ([]entities.StoredBoundarySegment, []entities.StoredQABlock, error) {
	boundaries, err := s.repo.GetBoundaries(ctx, videoID)
	if err != nil {
		return nil, nil, apperrors.ErrDBQueryFailed("get boundaries", err)
	}
	blocks, err := s.repo.GetBlocks(ctx, videoID)
	if err != nil {
		return nil, nil, apperrors.ErrDBQueryFailed("get blocks", err)
	}
	if len(boundaries) == 0 && len(blocks) == 0 {
		return nil, nil, apperrors.ErrNotFound("segments")
	}
	return boundaries, blocks, nil
}

// GetExport returns the stored export document for a video, read through
// the cache, along with the artifact location if one exists.
func (s *Service) GetExport(ctx context.Context, videoID string) (*entities.ExportDocument, string, error) {
	key := ExportCacheKey(videoID)

	var raw []byte
	if cached, ok := s.cache.Get(ctx, key); ok {
		raw = []byte(cached)
	} else {
		record, err := s.exportRepo.GetExport(ctx, videoID)
		if err != nil {
			return nil, "", apperrors.ErrDBQueryFailed("get export", err)
		}
		if record == nil {
			return nil, "", apperrors.ErrNotFound("export")
		}
		raw = record.Document
		s.cache.Set(ctx, key, string(raw), exportCacheTTL)
	}

	var doc entities.ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", apperrors.ErrInternal(err)
	}

	location, err := s.exportStore.Location(ctx, videoID)
	if err != nil {
		s.logger.Warn("failed to resolve export artifact location",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		location = ""
	}

	return &doc, location, nil
}
