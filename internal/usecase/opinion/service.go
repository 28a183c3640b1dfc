package opinion

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/akozyrev/transcript-analyzer/errors"
	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	"github.com/akozyrev/transcript-analyzer/internal/domain/repositories"
	"github.com/akozyrev/transcript-analyzer/internal/usecase/segment"
	"github.com/akozyrev/transcript-analyzer/pkg/ai"
	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

const oracleAttempts = 3

// Request is one chunk to classify: its text plus the candidate persons
// whitelist produced by the upstream entity recognizer.
type Request struct {
	ChunkID string
	Start   float64
	End     float64
	Text    string
	Persons []string
}

// BatchResult aggregates per-item detections for a batch call.
type BatchResult struct {
	Results           []entities.Detection
	TotalWithOpinions int
}

// Service classifies opinions about persons in text chunks. Unlike the
// segmentation passes, exhausted oracle retries degrade to a safe
// zero-confidence default: "assume no opinion" is an acceptable answer,
// "assume no structure" is not.
type Service struct {
	oracle ai.Oracle
	repo   repositories.OpinionRepository
	cfg    *config.OpenAIConfig
	logger *zap.Logger
}

func NewService(oracle ai.Oracle, repo repositories.OpinionRepository, cfg *config.OpenAIConfig, logger *zap.Logger) *Service {
	return &Service{
		oracle: oracle,
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// Policy declares how this capability behaves on exhausted oracle retries.
func (s *Service) Policy() segment.FailurePolicy {
	return segment.DegradeToDefault
}

// rawDetection is the loosely-typed oracle response shape.
type rawDetection struct {
	HasOpinion   bool     `json:"has_opinion"`
	Targets      []string `json:"targets"`
	OpinionSpans []string `json:"opinion_spans"`
	Polarity     string   `json:"polarity"`
	Confidence   float64  `json:"confidence"`
}

// Detect classifies one chunk and persists the result. Never returns an
// oracle error: failures degrade to the safe default, which is persisted
// like any real result.
func (s *Service) Detect(ctx context.Context, req Request) (entities.Detection, error) {
	result := s.classify(ctx, req)

	if err := s.persist(ctx, req, result); err != nil {
		return entities.Detection{}, err
	}
	return result, nil
}

// DetectBatch classifies chunks sequentially, persisting each before
// moving to the next. A failure partway leaves earlier items durable;
// oracle failures per item degrade rather than abort.
func (s *Service) DetectBatch(ctx context.Context, items []Request) (*BatchResult, error) {
	results := make([]entities.Detection, 0, len(items))
	withOpinions := 0

	for _, item := range items {
		result, err := s.Detect(ctx, item)
		if err != nil {
			return nil, err
		}
		if result.HasOpinion {
			withOpinions++
		}
		results = append(results, result)
	}

	return &BatchResult{
		Results:           results,
		TotalWithOpinions: withOpinions,
	}, nil
}

// GetChunk returns the stored detection for a chunk.
func (s *Service) GetChunk(ctx context.Context, chunkID string) (*entities.StoredDetection, error) {
	row, err := s.repo.GetDetection(ctx, chunkID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("get detection", err)
	}
	if row == nil {
		return nil, apperrors.ErrNotFound("chunk")
	}
	return row, nil
}

// classify runs the oracle round-trip for one chunk and normalizes the
// response. An empty persons list short-circuits with full confidence:
// with no candidates there is nothing to detect.
func (s *Service) classify(ctx context.Context, req Request) entities.Detection {
	if len(req.Persons) == 0 {
		result := entities.SafeDefaultDetection()
		result.Confidence = 1.0
		return result
	}

	text := req.Text
	// rune-based cut, mostly Cyrillic text
	if r := []rune(text); s.cfg.MaxTextLength > 0 && len(r) > s.cfg.MaxTextLength {
		text = string(r[:s.cfg.MaxTextLength]) + "..."
		s.logger.Warn("truncated chunk text for oracle",
			zap.String("chunk_id", req.ChunkID),
			zap.Int("max_length", s.cfg.MaxTextLength),
		)
	}

	prompt := BuildOpinionPrompt(text, req.Persons)

	raw, err := s.callOracle(ctx, prompt)
	if err != nil {
		s.logger.Error("oracle failure for chunk, degrading to safe default",
			zap.String("chunk_id", req.ChunkID),
			zap.Error(err),
		)
		return entities.SafeDefaultDetection()
	}

	var parsed rawDetection
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logger.Error("unparseable oracle response for chunk, degrading to safe default",
			zap.String("chunk_id", req.ChunkID),
			zap.Error(err),
		)
		return entities.SafeDefaultDetection()
	}

	result := entities.Detection{
		HasOpinion:   parsed.HasOpinion,
		Targets:      parsed.Targets,
		OpinionSpans: parsed.OpinionSpans,
		Polarity:     entities.Polarity(parsed.Polarity),
		Confidence:   parsed.Confidence,
	}
	if result.Targets == nil {
		result.Targets = []string{}
	}
	if result.OpinionSpans == nil {
		result.OpinionSpans = []string{}
	}
	if !result.Polarity.IsValid() {
		result.Polarity = entities.PolarityUnclear
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	// Targets are constrained to the caller's whitelist regardless of what
	// the oracle claims.
	filtered := make([]string, 0, len(result.Targets))
	for _, t := range result.Targets {
		if contains(req.Persons, t) {
			filtered = append(filtered, t)
		} else {
			s.logger.Warn("dropping target outside persons whitelist",
				zap.String("chunk_id", req.ChunkID),
				zap.String("target", t),
			)
		}
	}
	result.Targets = filtered

	for _, span := range result.OpinionSpans {
		if span != "" && !strings.Contains(req.Text, span) {
			preview := span
			if r := []rune(preview); len(r) > 50 {
				preview = string(r[:50])
			}
			s.logger.Warn("opinion span not found in chunk text",
				zap.String("chunk_id", req.ChunkID),
				zap.String("span", preview),
			)
		}
	}

	return result
}

func (s *Service) callOracle(ctx context.Context, prompt string) (json.RawMessage, error) {
	var out json.RawMessage

	op := func() error {
		callCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}
		raw, err := s.oracle.InferJSON(callCtx, SystemPromptExtraction, prompt, s.cfg.Model)
		if err != nil {
			return err
		}
		out = raw
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, oracleAttempts-1), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, req Request, result entities.Detection) error {
	row := entities.StoredDetection{
		ChunkID:    req.ChunkID,
		Start:      req.Start,
		End:        req.End,
		Persons:    entities.MarshalStringList(req.Persons),
		HasOpinion: result.HasOpinion,
		Targets:    entities.MarshalStringList(result.Targets),
		Spans:      entities.MarshalStringList(result.OpinionSpans),
		Polarity:   result.Polarity,
		Confidence: result.Confidence,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.UpsertDetection(ctx, &row); err != nil {
		return apperrors.ErrDBQueryFailed("upsert detection", err)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
