package transcribe

import (
	"context"
	"fmt"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

// Transcriber turns an externally hosted audio file into an indexed
// utterance list ready for segmentation.
type Transcriber interface {
	TranscribeURL(ctx context.Context, audioURL string) ([]entities.Utterance, error)
	Enabled() bool
}

// AssemblyAITranscriber is the AssemblyAI SDK backed Transcriber.
// Utterance indices are assigned from array position; AssemblyAI does
// not carry stable utterance ids across runs.
type AssemblyAITranscriber struct {
	client *aai.Client
	apiKey string
	logger *zap.Logger
}

func NewAssemblyAITranscriber(cfg *config.AssemblyConfig, logger *zap.Logger) *AssemblyAITranscriber {
	var client *aai.Client
	if cfg.APIKey != "" {
		client = aai.NewClient(cfg.APIKey)
	}
	return &AssemblyAITranscriber{
		client: client,
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// Enabled reports whether an API key was configured.
func (t *AssemblyAITranscriber) Enabled() bool {
	return t.client != nil
}

// TranscribeURL submits the audio URL and blocks until the transcript is
// ready. AssemblyAI reports timestamps in milliseconds; utterances come
// back in seconds to match the rest of the pipeline.
func (t *AssemblyAITranscriber) TranscribeURL(ctx context.Context, audioURL string) ([]entities.Utterance, error) {
	if t.client == nil {
		return nil, fmt.Errorf("assemblyai client not configured")
	}

	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(true),
	}

	transcript, err := t.client.Transcripts.TranscribeFromURL(ctx, audioURL, params)
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcription: %w", err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "transcription failed"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return nil, fmt.Errorf("assemblyai transcription: %s", msg)
	}

	utterances := make([]entities.Utterance, 0, len(transcript.Utterances))
	for i, u := range transcript.Utterances {
		item := entities.Utterance{Index: i}
		if u.Start != nil {
			item.Start = float64(*u.Start) / 1000.0
		}
		if u.End != nil {
			item.End = float64(*u.End) / 1000.0
		}
		if u.Text != nil {
			item.Text = *u.Text
		}
		utterances = append(utterances, item)
	}

	t.logger.Info("transcription completed",
		zap.String("audio_url", audioURL),
		zap.Int("utterances", len(utterances)),
	)

	return utterances, nil
}
