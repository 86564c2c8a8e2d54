package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/service"
	"github.com/noah-isme/shkola-api/internal/utils"
	"github.com/noah-isme/shkola-api/pkg/genai"
)

// AnalysisHandler exposes the manual AI analysis trigger.
type AnalysisHandler struct {
	service service.AnalysisService
	logger  zerolog.Logger
}

// NewAnalysisHandler builds an analysis handler instance.
func NewAnalysisHandler(service service.AnalysisService, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger.With().Str("component", "analysis_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AnalysisHandler) Register(router fiber.Router) {
	router.Post("/analyze-submission", h.analyze)
}

func (h *AnalysisHandler) analyze(c *fiber.Ctx) error {
	var payload dto.AnalyzeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	analysis, err := h.service.Analyze(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "analysis completed", analysis)
}

func (h *AnalysisHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, genai.ErrInsufficientBalance):
		return utils.SendError(c, fiber.StatusPaymentRequired, "ai provider balance exhausted")
	case errors.Is(err, genai.ErrModelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "ai model not found")
	case errors.Is(err, genai.ErrTimeout):
		return utils.SendError(c, fiber.StatusGatewayTimeout, "ai provider timed out")
	case errors.Is(err, genai.ErrInvalidToken), errors.Is(err, genai.ErrUpstream):
		requestLogger(h.logger, c).Error().Err(err).Msg("ai provider failure")
		return utils.SendError(c, fiber.StatusBadGateway, "ai provider is unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
