package segment

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// rawBoundary is the loosely-typed shape of one oracle boundary record.
// Pointer fields distinguish absent from zero so defaults apply correctly.
type rawBoundary struct {
	Type       *string  `json:"type"`
	StartU     *int     `json:"start_u"`
	EndU       *int     `json:"end_u"`
	Confidence *float64 `json:"confidence"`
	Notes      *string  `json:"notes"`
}

// rawBlock is the loosely-typed shape of one oracle block record.
type rawBlock struct {
	StartU        *int            `json:"start_u"`
	EndU          *int            `json:"end_u"`
	Questions     json.RawMessage `json:"questions"`
	AnswerSummary *string         `json:"answer_summary"`
	Confidence    *float64        `json:"confidence"`
}

// ValidateBoundaries filters and normalizes raw oracle boundary records
// into well-typed segments. Records are processed independently: a record
// that fails to decode, or whose indices fall outside
// [lower, upper], is discarded with a warning. Unrecognized types coerce
// to narrative. Confidence defaults to 0.5 when absent and is clamped to
// [0,1]. Input order is preserved; no re-sorting happens here.
func ValidateBoundaries(items []json.RawMessage, lower, upper int, logger *zap.Logger) []entities.BoundarySegment {
	validated := make([]entities.BoundarySegment, 0, len(items))

	for i, item := range items {
		// json.Unmarshal accepts null into a struct without error
		if isNullRecord(item) {
			logger.Warn("discarding null boundary record", zap.Int("position", i))
			continue
		}
		var raw rawBoundary
		if err := json.Unmarshal(item, &raw); err != nil {
			logger.Warn("discarding malformed boundary record",
				zap.Int("position", i),
				zap.Error(err),
			)
			continue
		}

		startU := lower
		if raw.StartU != nil {
			startU = *raw.StartU
		}
		endU := lower
		if raw.EndU != nil {
			endU = *raw.EndU
		}

		if !(lower <= startU && startU <= endU && endU <= upper) {
			logger.Warn("discarding boundary segment with out-of-range indices",
				zap.Int("start_u", startU),
				zap.Int("end_u", endU),
				zap.Int("lower", lower),
				zap.Int("upper", upper),
			)
			continue
		}

		segType := entities.SegmentTypeNarrative
		if raw.Type != nil {
			if t := entities.SegmentType(*raw.Type); t.IsValid() {
				segType = t
			} else {
				logger.Warn("coercing unrecognized segment type to narrative",
					zap.String("type", *raw.Type),
				)
			}
		}

		notes := ""
		if raw.Notes != nil {
			notes = *raw.Notes
		}

		validated = append(validated, entities.BoundarySegment{
			Type:       segType,
			StartU:     startU,
			EndU:       endU,
			Confidence: clampConfidence(raw.Confidence),
			Notes:      notes,
		})
	}

	return validated
}

// ValidateBlocks filters and normalizes raw oracle block records scoped to
// one qa segment's range. Missing indices default to the range bounds.
// Bound checks, decode failures and confidence handling follow the same
// rules as ValidateBoundaries. Order is preserved.
func ValidateBlocks(items []json.RawMessage, qaStart, qaEnd int, logger *zap.Logger) []entities.QABlock {
	validated := make([]entities.QABlock, 0, len(items))

	for i, item := range items {
		if isNullRecord(item) {
			logger.Warn("discarding null block record", zap.Int("position", i))
			continue
		}
		var raw rawBlock
		if err := json.Unmarshal(item, &raw); err != nil {
			logger.Warn("discarding malformed block record",
				zap.Int("position", i),
				zap.Error(err),
			)
			continue
		}

		startU := qaStart
		if raw.StartU != nil {
			startU = *raw.StartU
		}
		endU := qaEnd
		if raw.EndU != nil {
			endU = *raw.EndU
		}

		if !(qaStart <= startU && startU <= endU && endU <= qaEnd) {
			logger.Warn("discarding block with indices outside qa range",
				zap.Int("start_u", startU),
				zap.Int("end_u", endU),
				zap.Int("qa_start", qaStart),
				zap.Int("qa_end", qaEnd),
			)
			continue
		}

		// A non-array questions field is dropped, not fatal for the record.
		var questions []string
		if len(raw.Questions) > 0 {
			if err := json.Unmarshal(raw.Questions, &questions); err != nil {
				logger.Warn("ignoring non-array questions field",
					zap.Int("position", i),
				)
			}
		}
		if questions == nil {
			questions = []string{}
		}

		summary := ""
		if raw.AnswerSummary != nil {
			summary = *raw.AnswerSummary
		}

		validated = append(validated, entities.QABlock{
			StartU:        startU,
			EndU:          endU,
			Questions:     questions,
			AnswerSummary: summary,
			Confidence:    clampConfidence(raw.Confidence),
		})
	}

	return validated
}

func isNullRecord(item json.RawMessage) bool {
	return len(item) == 0 || string(item) == "null"
}

// clampConfidence applies the 0.5 absence default and clamps to [0,1].
func clampConfidence(value *float64) float64 {
	if value == nil {
		return 0.5
	}
	c := *value
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
