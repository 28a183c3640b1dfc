package segment

import (
	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	usecase "github.com/akozyrev/transcript-analyzer/internal/usecase/segment"
)

// QARange echoes the parent qa segment's index range so block output can be
// bound-checked against it.
type QARange struct {
	StartU int `json:"start_u" validate:"gte=0"`
	EndU   int `json:"end_u" validate:"gte=0,gtefield=StartU"`
}

// BoundaryRequest asks for Pass 1 over a full transcript.
type BoundaryRequest struct {
	VideoID    string               `json:"video_id" validate:"required"`
	Utterances []entities.Utterance `json:"utterances"`
}

// BlocksRequest asks for Pass 2 over one qa region's utterances.
type BlocksRequest struct {
	VideoID    string               `json:"video_id" validate:"required"`
	Utterances []entities.Utterance `json:"utterances"`
	QARange    QARange              `json:"qa_range"`
}

// RunRequest asks for the full two-pass pipeline.
type RunRequest struct {
	VideoID    string               `json:"video_id" validate:"required"`
	Utterances []entities.Utterance `json:"utterances"`
}

// FromTranscriptionRequest carries a raw provider transcription payload;
// utterance indices are derived from array position.
type FromTranscriptionRequest struct {
	VideoID       string                   `json:"video_id" validate:"required"`
	Transcription usecase.RawTranscription `json:"transcription"`
}

// FromAudioRequest asks to transcribe an externally hosted audio file and
// run the full pipeline on the result.
type FromAudioRequest struct {
	VideoID  string `json:"video_id" validate:"required"`
	AudioURL string `json:"audio_url" validate:"required,url"`
}
