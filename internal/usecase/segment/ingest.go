package segment

import (
	apperrors "github.com/akozyrev/transcript-analyzer/errors"
	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

// RawTranscription is the provider-shaped transcription payload accepted by
// the from-transcription ingestion path.
type RawTranscription struct {
	Results struct {
		Utterances []RawUtterance `json:"utterances"`
	} `json:"results"`
}

// RawUtterance is one provider utterance. It carries no stable id; Index is
// assigned downstream from array position.
type RawUtterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Transcript string  `json:"transcript"`
}

// UtterancesFromTranscription converts a raw transcription payload into the
// pipeline's utterance list. The index is the 0-based array position;
// provider-side id fields are ignored, so callers must preserve array
// order.
func UtterancesFromTranscription(raw *RawTranscription) ([]entities.Utterance, error) {
	if raw == nil || len(raw.Results.Utterances) == 0 {
		return nil, apperrors.ErrInvalidArgument("No utterances found in transcription payload. Ensure utterances are enabled in transcription.")
	}

	utterances := make([]entities.Utterance, 0, len(raw.Results.Utterances))
	for i, u := range raw.Results.Utterances {
		utterances = append(utterances, entities.Utterance{
			Index: i,
			Start: u.Start,
			End:   u.End,
			Text:  u.Transcript,
		})
	}

	return utterances, nil
}
