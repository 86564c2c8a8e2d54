package handler

import (
	"errors"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/service"
	"github.com/noah-isme/shkola-api/internal/storage"
	"github.com/noah-isme/shkola-api/internal/utils"
)

// StudentTaskHandler manages the student-facing assignment endpoints.
type StudentTaskHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewStudentTaskHandler builds a student task handler instance.
func NewStudentTaskHandler(service service.SubmissionService, logger zerolog.Logger) *StudentTaskHandler {
	return &StudentTaskHandler{
		service: service,
		logger:  logger.With().Str("component", "student_task_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StudentTaskHandler) Register(router fiber.Router) {
	router.Get("/tasks", h.list)
	router.Get("/tasks/:id", h.get)
	router.Post("/tasks/:id/submit", h.submit)
}

func (h *StudentTaskHandler) list(c *fiber.Ctx) error {
	page := parseQueryInt(c, "page", 1)
	size := parseQueryInt(c, "size", 5)

	result, err := h.service.ListForStudent(c.Context(), userIDFromContext(c), page, size)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tasks retrieved", result)
}

func (h *StudentTaskHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	view, err := h.service.GetForStudent(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task retrieved", view)
}

func (h *StudentTaskHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	payload := dto.SubmitRequest{Comment: c.FormValue("comment")}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["files"]
	}

	view, err := h.service.Submit(c.Context(), userIDFromContext(c), id, payload, files)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task submitted", view)
}

func (h *StudentTaskHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrAlreadyAccepted):
		return utils.SendError(c, fiber.StatusConflict, "submission already accepted")
	case errors.Is(err, storage.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusBadRequest, "file is too large")
	case errors.Is(err, storage.ErrFileTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, "file type is not allowed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
