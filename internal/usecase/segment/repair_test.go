package segment

import (
	"testing"

	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

func TestRepairBoundariesFallbackOnEmpty(t *testing.T) {
	repaired := RepairBoundaries(nil, 0, 42, zap.NewNop())

	if len(repaired) != 1 {
		t.Fatalf("expected exactly one fallback segment, got %d", len(repaired))
	}
	fb := repaired[0]
	if fb.Type != entities.SegmentTypeNarrative {
		t.Errorf("fallback type should be narrative, got %q", fb.Type)
	}
	if fb.StartU != 0 || fb.EndU != 42 {
		t.Errorf("fallback should span the full range, got [%d, %d]", fb.StartU, fb.EndU)
	}
	if fb.Confidence != 0.5 {
		t.Errorf("fallback confidence should be 0.5, got %v", fb.Confidence)
	}
	if fb.Notes == "" {
		t.Error("fallback must carry an identifying note")
	}
}

func TestRepairBoundariesNonEmptyReturnedAsIs(t *testing.T) {
	// Gapped and overlapping input is logged but not corrected.
	input := []entities.BoundarySegment{
		{Type: entities.SegmentTypeNarrative, StartU: 0, EndU: 3, Confidence: 0.9},
		{Type: entities.SegmentTypeQA, StartU: 6, EndU: 9, Confidence: 0.8},
		{Type: entities.SegmentTypeQA, StartU: 8, EndU: 10, Confidence: 0.8},
	}

	repaired := RepairBoundaries(input, 0, 12, zap.NewNop())

	if len(repaired) != len(input) {
		t.Fatalf("non-empty input must pass through unchanged, got %d segments", len(repaired))
	}
	for i := range input {
		if repaired[i] != input[i] {
			t.Errorf("segment %d was modified: %+v", i, repaired[i])
		}
	}
}

func TestRepairBlocksFallbackOnEmpty(t *testing.T) {
	repaired := RepairBlocks(nil, 10, 30, zap.NewNop())

	if len(repaired) != 1 {
		t.Fatalf("expected exactly one fallback block, got %d", len(repaired))
	}
	fb := repaired[0]
	if fb.StartU != 10 || fb.EndU != 30 {
		t.Errorf("fallback should span the qa range, got [%d, %d]", fb.StartU, fb.EndU)
	}
	if fb.Questions == nil || len(fb.Questions) != 0 {
		t.Errorf("fallback questions should be an empty list, got %v", fb.Questions)
	}
	if fb.Confidence != 0.5 {
		t.Errorf("fallback confidence should be 0.5, got %v", fb.Confidence)
	}
	if fb.AnswerSummary == "" {
		t.Error("fallback must carry an identifying summary")
	}
}

func TestValidateThenRepairNeverEmpty(t *testing.T) {
	// Coverage-or-fallback: garbage in, non-empty well-bounded sequence out.
	items := rawItems(t, `[
		{"type": "qa", "start_u": 100, "end_u": 200},
		"garbage",
		null
	]`)

	validated := ValidateBoundaries(items, 0, 3, zap.NewNop())
	repaired := RepairBoundaries(validated, 0, 3, zap.NewNop())

	if len(repaired) != 1 {
		t.Fatalf("expected single fallback, got %d", len(repaired))
	}
	if repaired[0].StartU != 0 || repaired[0].EndU != 3 {
		t.Errorf("fallback should span [0, 3], got [%d, %d]", repaired[0].StartU, repaired[0].EndU)
	}
}
