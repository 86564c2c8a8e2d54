package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/service"
	"github.com/noah-isme/shkola-api/internal/utils"
)

// AttendanceHandler manages the per-quarter attendance sheet endpoints.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler builds an attendance handler instance.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Get("", h.quarterSheet)
	router.Post("", h.record)
}

func (h *AttendanceHandler) quarterSheet(c *fiber.Ctx) error {
	grade := c.Query("grade")
	if grade == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "grade is required")
	}
	quarter := parseQueryInt(c, "quarter", 0)

	sheet, err := h.service.QuarterSheet(c.Context(), grade, quarter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance retrieved", sheet)
}

func (h *AttendanceHandler) record(c *fiber.Ctx) error {
	grade := c.Query("grade")
	if grade == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "grade is required")
	}

	var payload dto.AttendanceRecordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.service.Record(c.Context(), grade, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance recorded", record)
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrStudentNotInGrade):
		return utils.SendError(c, fiber.StatusBadRequest, "student does not belong to this grade")
	case errors.Is(err, service.ErrInvalidQuarter):
		return utils.SendError(c, fiber.StatusBadRequest, "quarter must be between 1 and 4")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
