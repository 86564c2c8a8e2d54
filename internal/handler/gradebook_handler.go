package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/service"
	"github.com/noah-isme/shkola-api/internal/utils"
)

// GradebookHandler exposes the class gradebook matrix and per-student
// grade histories.
type GradebookHandler struct {
	service service.GradebookService
	logger  zerolog.Logger
}

// NewGradebookHandler builds a gradebook handler instance.
func NewGradebookHandler(service service.GradebookService, logger zerolog.Logger) *GradebookHandler {
	return &GradebookHandler{
		service: service,
		logger:  logger.With().Str("component", "gradebook_handler").Logger(),
	}
}

// Register attaches the teacher-only matrix route to the provided group.
func (h *GradebookHandler) Register(router fiber.Router) {
	router.Get("/gradebook", h.classGradebook)
}

// RegisterGrades attaches the grade history route; access is decided per
// request from the requester's role.
func (h *GradebookHandler) RegisterGrades(router fiber.Router) {
	router.Get("/:id/grades", h.studentGrades)
}

func (h *GradebookHandler) classGradebook(c *fiber.Ctx) error {
	grade := c.Query("grade")
	if grade == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "grade is required")
	}

	gradebook, err := h.service.ClassGradebook(c.Context(), userIDFromContext(c), grade)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "gradebook retrieved", gradebook)
}

func (h *GradebookHandler) studentGrades(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	grades, err := h.service.StudentGrades(c.Context(), userIDFromContext(c), userRoleFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grades retrieved", grades)
}

func (h *GradebookHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrGradesForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "no access to this student's grades")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
