package segment

import (
	"testing"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	pkgvalidator "github.com/akozyrev/transcript-analyzer/pkg/validator"
)

func TestBlocksRequestRejectsInvertedQARange(t *testing.T) {
	v := pkgvalidator.New()

	req := BlocksRequest{
		VideoID: "vid1",
		Utterances: []entities.Utterance{
			{Index: 0, Start: 0, End: 1, Text: "текст"},
		},
		QARange: QARange{StartU: 5, EndU: 2},
	}

	if err := v.Validate(&req); err == nil {
		t.Error("inverted qa range must fail validation")
	}

	req.QARange = QARange{StartU: 2, EndU: 2}
	if err := v.Validate(&req); err != nil {
		t.Errorf("single-index qa range should validate, got %v", err)
	}

	req.QARange = QARange{StartU: 2, EndU: 5}
	if err := v.Validate(&req); err != nil {
		t.Errorf("ordered qa range should validate, got %v", err)
	}
}
