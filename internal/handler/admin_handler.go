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

// AdminHandler manages the admin surface: teacher approval, student
// administration and the LMS grade report.
type AdminHandler struct {
	admin   service.AdminService
	reports service.LMSReportService
	logger  zerolog.Logger
}

// NewAdminHandler builds an admin handler instance.
func NewAdminHandler(admin service.AdminService, reports service.LMSReportService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		reports: reports,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/teachers", h.listTeachers)
	router.Post("/teachers/:id/approve", h.approveTeacher)
	router.Get("/students", h.listStudents)
	router.Put("/students/:id", h.updateStudent)
	router.Delete("/students/:id", h.deleteStudent)
	router.Post("/students/generate", h.generateStudents)
	router.Get("/courses-with-last-grade", h.coursesWithLastGrade)
}

func (h *AdminHandler) listTeachers(c *fiber.Ctx) error {
	teachers, err := h.admin.ListTeachers(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "teachers retrieved", teachers)
}

func (h *AdminHandler) approveTeacher(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid teacher id")
	}

	teacher, err := h.admin.ApproveTeacher(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "teacher approved", teacher)
}

func (h *AdminHandler) listStudents(c *fiber.Ctx) error {
	students, err := h.admin.ListStudents(c.Context(), c.Query("grade"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *AdminHandler) updateStudent(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	var payload dto.StudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	student, err := h.admin.UpdateStudent(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "student updated", student)
}

func (h *AdminHandler) deleteStudent(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	if err := h.admin.DeleteStudent(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "student deleted", nil)
}

func (h *AdminHandler) generateStudents(c *fiber.Ctx) error {
	var payload dto.StudentGenerationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	generated, err := h.admin.GenerateStudents(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "students generated", generated)
}

func (h *AdminHandler) coursesWithLastGrade(c *fiber.Ctx) error {
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid teacher_id")
	}

	report, err := h.reports.CoursesWithLastGrade(c.Context(), teacherID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course grade report retrieved", report)
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTeacherNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "teacher not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrAlreadyVerified):
		return utils.SendError(c, fiber.StatusBadRequest, "teacher already confirmed")
	case errors.Is(err, service.ErrLMSAccountNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no lms account for this teacher")
	case errors.Is(err, service.ErrLMSNotConfigured):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "lms integration is not configured")
	case errors.Is(err, service.ErrLMSUnavailable):
		requestLogger(h.logger, c).Error().Err(err).Msg("lms upstream failure")
		return utils.SendError(c, fiber.StatusBadGateway, "lms is unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
