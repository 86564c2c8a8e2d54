package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/service"
	"github.com/noah-isme/shkola-api/internal/storage"
	"github.com/noah-isme/shkola-api/internal/utils"
)

// TaskHandler manages task authoring and attachment endpoints.
type TaskHandler struct {
	service service.TaskService
	logger  zerolog.Logger
}

// NewTaskHandler builds a task handler instance.
func NewTaskHandler(service service.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register attaches the teacher-only routes to the provided router group.
func (h *TaskHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.listByGrade)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/files", h.uploadFile)
	router.Delete("/:id/files/:name", h.deleteFile)
}

// RegisterFileAccess attaches attachment read routes available to every
// authenticated user; students download task files through these.
func (h *TaskHandler) RegisterFileAccess(router fiber.Router) {
	router.Get("/:id/files", h.listFiles)
	router.Get("/:id/files/:name", h.downloadFile)
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	var payload dto.TaskCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	task, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task created", task)
}

func (h *TaskHandler) listByGrade(c *fiber.Ctx) error {
	grade := c.Query("grade")
	if grade == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "grade is required")
	}

	tasks, err := h.service.ListByGrade(c.Context(), userIDFromContext(c), grade, c.Query("scope", "mine"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tasks retrieved", tasks)
}

func (h *TaskHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	var payload dto.TaskUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	task, err := h.service.Update(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task updated", task)
}

func (h *TaskHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	if err := h.service.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task deleted", nil)
}

func (h *TaskHandler) uploadFile(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	uploaded, err := h.service.UploadFile(c.Context(), userIDFromContext(c), id, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "file uploaded", uploaded)
}

func (h *TaskHandler) listFiles(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	files, err := h.service.ListFiles(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "files retrieved", files)
}

func (h *TaskHandler) downloadFile(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	path, originalName, err := h.service.FilePath(c.Context(), id, c.Params("name"))
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Download(path, originalName)
}

func (h *TaskHandler) deleteFile(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	if err := h.service.DeleteFile(c.Context(), userIDFromContext(c), id, c.Params("name")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "file deleted", nil)
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrFileNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "file not found")
	case errors.Is(err, service.ErrTeacherNotVerified):
		return utils.SendError(c, fiber.StatusForbidden, "teacher account is not verified")
	case errors.Is(err, service.ErrGradeMismatch):
		return utils.SendError(c, fiber.StatusBadRequest, "all assigned students must belong to the task grade")
	case errors.Is(err, service.ErrStudentHasSubmission):
		return utils.SendError(c, fiber.StatusConflict, "cannot remove student: submission exists")
	case errors.Is(err, service.ErrTooManyFiles):
		return utils.SendError(c, fiber.StatusBadRequest, "task already has the maximum number of files")
	case errors.Is(err, storage.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusBadRequest, "file is too large")
	case errors.Is(err, storage.ErrFileTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, "file type is not allowed")
	case errors.Is(err, storage.ErrUnsafeFilename):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid file name")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
