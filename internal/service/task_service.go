package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
	"github.com/noah-isme/shkola-api/internal/storage"
)

// ErrTaskNotFound indicates a task could not be found (or is not owned by
// the requesting teacher; the two are deliberately indistinguishable).
var ErrTaskNotFound = errors.New("task not found")

// ErrGradeMismatch indicates assigned students do not belong to the task's class.
var ErrGradeMismatch = errors.New("all assigned students must belong to the task grade")

// ErrStudentHasSubmission blocks roster removal once work was submitted.
var ErrStudentHasSubmission = errors.New("cannot remove student: submission exists")

// ErrTooManyFiles caps task attachments.
var ErrTooManyFiles = errors.New("task already has the maximum number of files")

// ErrFileNotFound indicates a stored attachment could not be located.
var ErrFileNotFound = errors.New("file not found")

// ErrTeacherNotVerified blocks task creation until an admin approves the account.
var ErrTeacherNotVerified = errors.New("teacher account is not verified")

// TaskFileStore is the slice of the file store the task service needs.
type TaskFileStore interface {
	SaveTaskFile(taskID uint, file *multipart.FileHeader) (storage.StoredFile, error)
	RemoveTaskFile(taskID uint, name string) error
	RemoveTaskTree(taskID uint) error
}

// TaskService orchestrates task authoring and attachment management.
type TaskService interface {
	Create(ctx context.Context, teacherID uint, payload dto.TaskCreateRequest) (dto.TaskResponse, error)
	Update(ctx context.Context, teacherID, taskID uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Delete(ctx context.Context, teacherID, taskID uint) error
	ListByGrade(ctx context.Context, teacherID uint, grade, scope string) ([]dto.TaskResponse, error)
	UploadFile(ctx context.Context, teacherID, taskID uint, file *multipart.FileHeader) (dto.TaskFileResponse, error)
	ListFiles(ctx context.Context, taskID uint) ([]dto.TaskFileResponse, error)
	FilePath(ctx context.Context, taskID uint, storedName string) (string, string, error)
	DeleteFile(ctx context.Context, teacherID, taskID uint, storedName string) error
}

type taskService struct {
	tasks        repository.TaskRepository
	studentTasks repository.StudentTaskRepository
	users        repository.UserRepository
	store        TaskFileStore
	validator    *validator.Validate
	logger       zerolog.Logger
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(tasks repository.TaskRepository, studentTasks repository.StudentTaskRepository, users repository.UserRepository, store TaskFileStore, validate *validator.Validate, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:        tasks,
		studentTasks: studentTasks,
		users:        users,
		store:        store,
		validator:    validate,
		logger:       logger.With().Str("component", "task_service").Logger(),
	}
}

func (s *taskService) Create(ctx context.Context, teacherID uint, payload dto.TaskCreateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	teacher, err := s.users.GetTeacher(ctx, teacherID)
	if err != nil {
		return dto.TaskResponse{}, err
	}
	if !teacher.IsVerified {
		return dto.TaskResponse{}, ErrTeacherNotVerified
	}

	grade := strings.TrimSpace(payload.Grade)
	if err := s.checkStudentsInGrade(ctx, payload.StudentIDs, grade); err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		Title:            strings.TrimSpace(payload.Title),
		Description:      payload.Description,
		Subject:          strings.TrimSpace(payload.Subject),
		Reason:           strings.TrimSpace(payload.Reason),
		DueDate:          payload.DueDate,
		Grade:            grade,
		TeacherID:        teacherID,
		EnableAIAnalysis: payload.EnableAIAnalysis,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	records := make([]*models.StudentTask, 0, len(payload.StudentIDs))
	for _, studentID := range payload.StudentIDs {
		records = append(records, &models.StudentTask{
			TaskID:    task.ID,
			StudentID: studentID,
			Status:    models.StudentTaskStatusAssigned,
		})
	}

	if err := s.studentTasks.CreateBatch(ctx, records); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Int("students", len(records)).Msg("task created")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, teacherID, taskID uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.tasks.GetOwned(ctx, taskID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	if payload.Title != nil {
		task.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		task.Description = *payload.Description
	}
	if payload.Subject != nil {
		task.Subject = strings.TrimSpace(*payload.Subject)
	}
	if payload.Reason != nil {
		task.Reason = strings.TrimSpace(*payload.Reason)
	}
	if payload.DueDate != nil {
		task.DueDate = payload.DueDate
	}
	if payload.EnableAIAnalysis != nil {
		task.EnableAIAnalysis = *payload.EnableAIAnalysis
	}

	if payload.StudentIDs != nil {
		if err := s.reconcileRoster(ctx, &task, *payload.StudentIDs); err != nil {
			return dto.TaskResponse{}, err
		}
	}

	existing := task.StudentTasks
	task.StudentTasks = nil
	if err := s.tasks.Update(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}
	task.StudentTasks = existing

	return dto.NewTaskResponse(task), nil
}

// reconcileRoster adds missing assignment rows and removes dropped students.
// Removal is only permitted while the record still sits in "assigned"; any
// later state means the student already submitted something.
func (s *taskService) reconcileRoster(ctx context.Context, task *models.Task, studentIDs []uint) error {
	if err := s.checkStudentsInGrade(ctx, studentIDs, task.Grade); err != nil {
		return err
	}

	wanted := make(map[uint]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	current := make(map[uint]models.StudentTask, len(task.StudentTasks))
	for _, record := range task.StudentTasks {
		current[record.StudentID] = record
	}

	for _, record := range task.StudentTasks {
		if _, keep := wanted[record.StudentID]; keep {
			continue
		}
		if record.Status != models.StudentTaskStatusAssigned {
			return ErrStudentHasSubmission
		}
	}

	for _, record := range task.StudentTasks {
		if _, keep := wanted[record.StudentID]; keep {
			continue
		}
		if err := s.studentTasks.Delete(ctx, record.ID); err != nil {
			return err
		}
	}

	var added []*models.StudentTask
	for _, id := range studentIDs {
		if _, exists := current[id]; exists {
			continue
		}
		added = append(added, &models.StudentTask{
			TaskID:    task.ID,
			StudentID: id,
			Status:    models.StudentTaskStatusAssigned,
		})
	}

	return s.studentTasks.CreateBatch(ctx, added)
}

func (s *taskService) checkStudentsInGrade(ctx context.Context, studentIDs []uint, grade string) error {
	students, err := s.users.ListStudentsByIDs(ctx, studentIDs)
	if err != nil {
		return err
	}

	if len(students) != len(studentIDs) {
		return ErrGradeMismatch
	}

	for _, student := range students {
		if student.GradeLabel() != grade {
			return ErrGradeMismatch
		}
	}

	return nil
}

func (s *taskService) Delete(ctx context.Context, teacherID, taskID uint) error {
	task, err := s.tasks.GetOwned(ctx, taskID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return err
	}

	if err := s.store.RemoveTaskTree(task.ID); err != nil {
		s.logger.Warn().Err(err).Uint("task_id", task.ID).Msg("failed to remove task files")
	}

	s.logger.Info().Uint("task_id", task.ID).Msg("task deleted")

	return nil
}

func (s *taskService) ListByGrade(ctx context.Context, teacherID uint, grade, scope string) ([]dto.TaskResponse, error) {
	var owner *uint
	if strings.ToLower(strings.TrimSpace(scope)) != "all" {
		owner = &teacherID
	}

	tasks, err := s.tasks.ListByGrade(ctx, strings.TrimSpace(grade), owner)
	if err != nil {
		return nil, err
	}

	return dto.NewTaskResponseSlice(tasks), nil
}

func (s *taskService) UploadFile(ctx context.Context, teacherID, taskID uint, file *multipart.FileHeader) (dto.TaskFileResponse, error) {
	task, err := s.tasks.GetOwned(ctx, taskID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskFileResponse{}, ErrTaskNotFound
		}
		return dto.TaskFileResponse{}, err
	}

	count, err := s.tasks.CountFiles(ctx, task.ID)
	if err != nil {
		return dto.TaskFileResponse{}, err
	}
	if count >= models.MaxTaskFiles {
		return dto.TaskFileResponse{}, ErrTooManyFiles
	}

	stored, err := s.store.SaveTaskFile(task.ID, file)
	if err != nil {
		return dto.TaskFileResponse{}, err
	}

	record := models.TaskFile{
		TaskID:       task.ID,
		OriginalName: stored.OriginalName,
		StoredName:   stored.StoredName,
		Path:         stored.Path,
	}

	if err := s.tasks.AddFile(ctx, &record); err != nil {
		if removeErr := s.store.RemoveTaskFile(task.ID, stored.StoredName); removeErr != nil {
			s.logger.Warn().Err(removeErr).Msg("failed to clean up orphaned upload")
		}
		return dto.TaskFileResponse{}, err
	}

	return dto.NewTaskFileResponse(record), nil
}

func (s *taskService) ListFiles(ctx context.Context, taskID uint) ([]dto.TaskFileResponse, error) {
	files, err := s.tasks.ListFiles(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return dto.NewTaskFileResponseSlice(files), nil
}

// FilePath resolves a stored attachment to its on-disk path and the original
// name to serve it under. Any authenticated user may download task files.
func (s *taskService) FilePath(ctx context.Context, taskID uint, storedName string) (string, string, error) {
	if err := storage.ValidateName(storedName); err != nil {
		return "", "", ErrFileNotFound
	}

	file, err := s.tasks.GetFile(ctx, taskID, storedName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrFileNotFound
		}
		return "", "", err
	}

	return file.Path, file.OriginalName, nil
}

func (s *taskService) DeleteFile(ctx context.Context, teacherID, taskID uint, storedName string) error {
	if err := storage.ValidateName(storedName); err != nil {
		return ErrFileNotFound
	}

	task, err := s.tasks.GetOwned(ctx, taskID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	file, err := s.tasks.GetFile(ctx, task.ID, storedName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	if err := s.tasks.DeleteFile(ctx, file.ID); err != nil {
		return err
	}

	if err := s.store.RemoveTaskFile(task.ID, file.StoredName); err != nil {
		s.logger.Warn().Err(err).Str("file", file.StoredName).Msg("failed to remove stored file")
	}

	return nil
}
