package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/errors"
	opiniondto "github.com/akozyrev/transcript-analyzer/internal/adapter/dto/opinion"
	"github.com/akozyrev/transcript-analyzer/internal/usecase/opinion"
)

// Opinion exposes per-chunk opinion detection over HTTP.
type Opinion struct {
	service *opinion.Service
	logger  *zap.Logger
}

func NewOpinionHandler(service *opinion.Service, logger *zap.Logger) *Opinion {
	return &Opinion{
		service: service,
		logger:  logger,
	}
}

// Detect classifies a single chunk.
// POST /v1/opinions/detect
func (h *Opinion) Detect(c echo.Context) error {
	var req opiniondto.DetectRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	result, err := h.service.Detect(c.Request().Context(), toUsecaseRequest(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, result)
}

// DetectBatch classifies several chunks sequentially.
// POST /v1/opinions/detect/batch
func (h *Opinion) DetectBatch(c echo.Context) error {
	var req opiniondto.DetectBatchRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	items := make([]opinion.Request, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, toUsecaseRequest(item))
	}

	result, err := h.service.DetectBatch(c.Request().Context(), items)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, opiniondto.DetectBatchResponse{
		Results:           result.Results,
		TotalWithOpinions: result.TotalWithOpinions,
	})
}

// GetChunk returns the stored detection for a chunk.
// GET /v1/chunks/:chunk_id
func (h *Opinion) GetChunk(c echo.Context) error {
	chunkID := c.Param("chunk_id")
	if chunkID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("chunk_id is required"))
	}

	row, err := h.service.GetChunk(c.Request().Context(), chunkID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, opiniondto.FromStored(row))
}

func toUsecaseRequest(req opiniondto.DetectRequest) opinion.Request {
	return opinion.Request{
		ChunkID: req.ChunkID,
		Start:   req.Start,
		End:     req.End,
		Text:    req.Text,
		Persons: req.Persons,
	}
}
