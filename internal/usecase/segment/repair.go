package segment

import (
	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// RepairBoundaries guarantees a non-empty boundary sequence. When
// validation yields nothing the whole range becomes one narrative fallback
// segment. Non-empty input is returned as-is; gaps and overlaps are
// reported in the logs but not corrected, since only total loss has an
// unambiguous repair.
func RepairBoundaries(validated []entities.BoundarySegment, lower, upper int, logger *zap.Logger) []entities.BoundarySegment {
	if len(validated) == 0 {
		logger.Warn("no valid boundary segments, falling back to single narrative segment",
			zap.Int("lower", lower),
			zap.Int("upper", upper),
		)
		return []entities.BoundarySegment{
			{
				Type:       entities.SegmentTypeNarrative,
				StartU:     lower,
				EndU:       upper,
				Confidence: 0.5,
				Notes:      "Fallback: entire transcript as narrative",
			},
		}
	}

	spans := make([][2]int, len(validated))
	for i, seg := range validated {
		spans[i] = [2]int{seg.StartU, seg.EndU}
	}
	logCoverage("boundary", spans, lower, upper, logger)

	return validated
}

// RepairBlocks guarantees a non-empty block sequence for one qa range. The
// fallback is a single block covering the whole range with no extracted
// questions. Gap/overlap handling matches RepairBoundaries.
func RepairBlocks(validated []entities.QABlock, qaStart, qaEnd int, logger *zap.Logger) []entities.QABlock {
	if len(validated) == 0 {
		logger.Warn("no valid qa blocks, falling back to single block",
			zap.Int("qa_start", qaStart),
			zap.Int("qa_end", qaEnd),
		)
		return []entities.QABlock{
			{
				StartU:        qaStart,
				EndU:          qaEnd,
				Questions:     []string{},
				AnswerSummary: "Fallback: entire Q&A region as one block",
				Confidence:    0.5,
			},
		}
	}

	spans := make([][2]int, len(validated))
	for i, b := range validated {
		spans[i] = [2]int{b.StartU, b.EndU}
	}
	logCoverage("block", spans, qaStart, qaEnd, logger)

	return validated
}

// logCoverage scans a span sequence, assumed ordered by start, for the
// coverage defects the oracle was instructed to avoid. Findings are logged
// for observability only.
func logCoverage(kind string, spans [][2]int, lower, upper int, logger *zap.Logger) {
	if len(spans) == 0 {
		return
	}

	if spans[0][0] > lower {
		logger.Warn("coverage gap before first unit",
			zap.String("kind", kind),
			zap.Int("lower", lower),
			zap.Int("first_start", spans[0][0]),
		)
	}
	if spans[len(spans)-1][1] < upper {
		logger.Warn("coverage gap after last unit",
			zap.String("kind", kind),
			zap.Int("upper", upper),
			zap.Int("last_end", spans[len(spans)-1][1]),
		)
	}

	for i := 1; i < len(spans); i++ {
		prevEnd := spans[i-1][1]
		start := spans[i][0]
		switch {
		case start > prevEnd+1:
			logger.Warn("coverage gap between units",
				zap.String("kind", kind),
				zap.Int("prev_end", prevEnd),
				zap.Int("next_start", start),
			)
		case start <= prevEnd:
			logger.Warn("overlapping units",
				zap.String("kind", kind),
				zap.Int("prev_end", prevEnd),
				zap.Int("next_start", start),
			)
		}
	}
}
