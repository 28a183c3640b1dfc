package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/errors"
	segmentdto "github.com/akozyrev/transcript-analyzer/internal/adapter/dto/segment"
	"github.com/akozyrev/transcript-analyzer/internal/usecase/segment"
	"github.com/akozyrev/transcript-analyzer/pkg/transcribe"
)

// Segment exposes the segmentation pipeline over HTTP.
type Segment struct {
	service     *segment.Service
	transcriber transcribe.Transcriber
	logger      *zap.Logger
}

func NewSegmentHandler(service *segment.Service, transcriber transcribe.Transcriber, logger *zap.Logger) *Segment {
	return &Segment{
		service:     service,
		transcriber: transcriber,
		logger:      logger,
	}
}

// Boundaries runs Pass 1 standalone.
// POST /v1/segment/boundaries
func (h *Segment) Boundaries(c echo.Context) error {
	var req segmentdto.BoundaryRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	segments, err := h.service.SegmentBoundaries(c.Request().Context(), req.VideoID, req.Utterances)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.BoundaryResponse{
		VideoID:  req.VideoID,
		Segments: segments,
	})
}

// Blocks runs Pass 2 standalone over one qa region.
// POST /v1/segment/blocks
func (h *Segment) Blocks(c echo.Context) error {
	var req segmentdto.BlocksRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	blocks, err := h.service.SegmentBlocks(c.Request().Context(), req.VideoID, req.Utterances, req.QARange.StartU, req.QARange.EndU)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.BlocksResponse{
		VideoID:  req.VideoID,
		QABlocks: blocks,
	})
}

// Run executes the full two-pass pipeline.
// POST /v1/segment/run
func (h *Segment) Run(c echo.Context) error {
	var req segmentdto.RunRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	result, err := h.service.Run(c.Request().Context(), req.VideoID, req.Utterances)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.SegmentsResponse{
		VideoID:          result.VideoID,
		BoundarySegments: result.Boundaries,
		QABlocks:         result.Blocks,
	})
}

// FromTranscription ingests a raw provider transcription payload and runs
// the full pipeline on the derived utterances.
// POST /v1/segment/from-transcription
func (h *Segment) FromTranscription(c echo.Context) error {
	var req segmentdto.FromTranscriptionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	utterances, err := segment.UtterancesFromTranscription(&req.Transcription)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	result, err := h.service.Run(c.Request().Context(), req.VideoID, utterances)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.SegmentsResponse{
		VideoID:          result.VideoID,
		BoundarySegments: result.Boundaries,
		QABlocks:         result.Blocks,
	})
}

// FromAudio transcribes an audio URL and runs the full pipeline.
// POST /v1/segment/from-audio
func (h *Segment) FromAudio(c echo.Context) error {
	var req segmentdto.FromAudioRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	if h.transcriber == nil || !h.transcriber.Enabled() {
		return HandleError(h.logger, c, errors.ErrTranscriptionDisabled())
	}

	utterances, err := h.transcriber.TranscribeURL(c.Request().Context(), req.AudioURL)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrTranscriptionFailed(err))
	}

	result, err := h.service.Run(c.Request().Context(), req.VideoID, utterances)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.SegmentsResponse{
		VideoID:          result.VideoID,
		BoundarySegments: result.Boundaries,
		QABlocks:         result.Blocks,
	})
}

// GetSegments returns the stored segmentation for a video.
// GET /v1/segments/:video_id
func (h *Segment) GetSegments(c echo.Context) error {
	videoID := c.Param("video_id")
	if videoID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("video_id is required"))
	}

	boundaries, blocks, err := h.service.GetSegments(c.Request().Context(), videoID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.SegmentsResponse{
		VideoID:          videoID,
		BoundarySegments: boundaries,
		QABlocks:         blocks,
	})
}

// GetExport returns the stored export document for a video.
// GET /v1/exports/:video_id
func (h *Segment) GetExport(c echo.Context) error {
	videoID := c.Param("video_id")
	if videoID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("video_id is required"))
	}

	doc, location, err := h.service.GetExport(c.Request().Context(), videoID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, segmentdto.ExportResponse{
		VideoID:  videoID,
		Export:   doc,
		FilePath: location,
	})
}
