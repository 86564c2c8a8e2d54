package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
	"github.com/noah-isme/shkola-api/internal/storage"
)

// ErrSubmissionNotFound indicates an assignment record could not be found
// within the caller's scope.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAlreadyAccepted blocks resubmission once a submission has been accepted.
var ErrAlreadyAccepted = errors.New("submission already accepted")

// ErrNotSubmitted blocks review actions on records awaiting a submission.
var ErrNotSubmitted = errors.New("submission is not pending review")

// ErrInvalidGrade rejects grades outside the accepted school scale.
var ErrInvalidGrade = errors.New("grade must be between 2 and 5")

// ErrCommentRequired requires feedback when rejecting a submission.
var ErrCommentRequired = errors.New("a comment is required to reject a submission")

// SubmissionFileStore is the slice of the file store the submission
// service needs.
type SubmissionFileStore interface {
	SaveSubmissionFile(taskID, studentID uint, file *multipart.FileHeader) (storage.StoredFile, error)
	ClearSubmissionFiles(taskID, studentID uint) error
	ListTaskFiles(taskID uint) []string
	ListSubmissionFiles(taskID, studentID uint) []string
}

// SubmissionService drives the assignment lifecycle from the student's
// submission through the teacher's review.
type SubmissionService interface {
	ListForStudent(ctx context.Context, studentID uint, page, size int) (dto.Page, error)
	GetForStudent(ctx context.Context, studentID, taskID uint) (dto.StudentTaskView, error)
	Submit(ctx context.Context, studentID, taskID uint, payload dto.SubmitRequest, files []*multipart.FileHeader) (dto.StudentTaskView, error)
	ListPending(ctx context.Context, teacherID uint) ([]dto.SubmissionResponse, error)
	Accept(ctx context.Context, teacherID, submissionID uint, payload dto.AcceptRequest) (dto.SubmissionResponse, error)
	Reject(ctx context.Context, teacherID, submissionID uint, payload dto.RejectRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	tasks       repository.TaskRepository
	studentTask repository.StudentTaskRepository
	store       SubmissionFileStore
	analysis    AnalysisService
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(tasks repository.TaskRepository, studentTasks repository.StudentTaskRepository, store SubmissionFileStore, analysis AnalysisService, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		tasks:       tasks,
		studentTask: studentTasks,
		store:       store,
		analysis:    analysis,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) ListForStudent(ctx context.Context, studentID uint, page, size int) (dto.Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 5
	}

	tasks, total, err := s.tasks.ListForStudent(ctx, studentID, page, size)
	if err != nil {
		return dto.Page{}, err
	}

	views := make([]dto.StudentTaskView, 0, len(tasks))
	for _, task := range tasks {
		view, err := s.buildView(ctx, task, studentID)
		if err != nil {
			return dto.Page{}, err
		}
		views = append(views, view)
	}

	return dto.NewPage(views, total, page, size), nil
}

func (s *submissionService) GetForStudent(ctx context.Context, studentID, taskID uint) (dto.StudentTaskView, error) {
	record, err := s.studentTask.GetByTaskAndStudent(ctx, taskID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentTaskView{}, ErrTaskNotFound
		}
		return dto.StudentTaskView{}, err
	}

	return dto.NewStudentTaskView(record.Task, &record,
		s.store.ListTaskFiles(taskID),
		s.store.ListSubmissionFiles(taskID, studentID)), nil
}

func (s *submissionService) buildView(ctx context.Context, task models.Task, studentID uint) (dto.StudentTaskView, error) {
	var record *models.StudentTask
	found, err := s.studentTask.GetByTaskAndStudent(ctx, task.ID, studentID)
	switch {
	case err == nil:
		record = &found
	case errors.Is(err, gorm.ErrRecordNotFound):
		// assigned but no record yet; the view defaults the status
	default:
		return dto.StudentTaskView{}, err
	}

	return dto.NewStudentTaskView(task, record,
		s.store.ListTaskFiles(task.ID),
		s.store.ListSubmissionFiles(task.ID, studentID)), nil
}

// Submit moves an assignment into review. Resubmission after a rejection is
// allowed and replaces the previous comment and files; an accepted record is
// final.
func (s *submissionService) Submit(ctx context.Context, studentID, taskID uint, payload dto.SubmitRequest, files []*multipart.FileHeader) (dto.StudentTaskView, error) {
	record, err := s.studentTask.GetByTaskAndStudent(ctx, taskID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentTaskView{}, ErrTaskNotFound
		}
		return dto.StudentTaskView{}, err
	}

	if !record.CanSubmit() {
		return dto.StudentTaskView{}, ErrAlreadyAccepted
	}

	// A resubmission replaces whatever was uploaded last time.
	if err := s.store.ClearSubmissionFiles(taskID, studentID); err != nil {
		s.logger.Warn().Err(err).Uint("task_id", taskID).Msg("failed to clear previous submission files")
	}
	for _, file := range files {
		if _, err := s.store.SaveSubmissionFile(taskID, studentID, file); err != nil {
			return dto.StudentTaskView{}, err
		}
	}

	submittedAt := s.now()
	record.Status = models.StudentTaskStatusSubmitted
	record.Comment = strings.TrimSpace(payload.Comment)
	record.SubmittedAt = &submittedAt
	record.TeacherComment = nil

	if err := s.studentTask.Update(ctx, &record); err != nil {
		return dto.StudentTaskView{}, err
	}

	if record.Task.EnableAIAnalysis {
		s.analysis.Schedule(record.ID, record.Task.Description, record.Comment)
	}

	s.events.PublishSubmissionEvent(SubmissionEvent{
		Type:         EventSubmitted,
		SubmissionID: record.ID,
		TaskID:       record.TaskID,
		StudentID:    studentID,
		TeacherID:    record.Task.TeacherID,
		Comment:      record.Comment,
		At:           submittedAt,
	})

	s.logger.Info().Uint("submission_id", record.ID).Uint("task_id", taskID).Msg("submission received")

	return dto.NewStudentTaskView(record.Task, &record,
		s.store.ListTaskFiles(taskID),
		s.store.ListSubmissionFiles(taskID, studentID)), nil
}

func (s *submissionService) ListPending(ctx context.Context, teacherID uint) ([]dto.SubmissionResponse, error) {
	records, err := s.studentTask.ListPendingForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(records), nil
}

func (s *submissionService) Accept(ctx context.Context, teacherID, submissionID uint, payload dto.AcceptRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !models.ValidReviewGrade(payload.Grade) {
		return dto.SubmissionResponse{}, ErrInvalidGrade
	}

	record, err := s.pendingOwned(ctx, submissionID, teacherID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	record.Status = models.StudentTaskStatusAccepted
	record.Grade = &payload.Grade
	record.TeacherComment = payload.Comment

	if err := s.studentTask.Update(ctx, &record); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.events.PublishSubmissionEvent(SubmissionEvent{
		Type:         EventAccepted,
		SubmissionID: record.ID,
		TaskID:       record.TaskID,
		StudentID:    record.StudentID,
		TeacherID:    teacherID,
		Grade:        record.Grade,
		At:           s.now(),
	})

	s.logger.Info().Uint("submission_id", record.ID).Int("grade", payload.Grade).Msg("submission accepted")

	return dto.NewSubmissionResponse(record), nil
}

// Reject returns the submission to the student. The grade stays unset; the
// student may rework and submit again.
func (s *submissionService) Reject(ctx context.Context, teacherID, submissionID uint, payload dto.RejectRequest) (dto.SubmissionResponse, error) {
	comment := strings.TrimSpace(payload.Comment)
	if comment == "" {
		return dto.SubmissionResponse{}, ErrCommentRequired
	}

	record, err := s.pendingOwned(ctx, submissionID, teacherID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	record.Status = models.StudentTaskStatusRejected
	record.TeacherComment = &comment

	if err := s.studentTask.Update(ctx, &record); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.events.PublishSubmissionEvent(SubmissionEvent{
		Type:         EventRejected,
		SubmissionID: record.ID,
		TaskID:       record.TaskID,
		StudentID:    record.StudentID,
		TeacherID:    teacherID,
		Comment:      comment,
		At:           s.now(),
	})

	s.logger.Info().Uint("submission_id", record.ID).Msg("submission rejected")

	return dto.NewSubmissionResponse(record), nil
}

func (s *submissionService) pendingOwned(ctx context.Context, submissionID, teacherID uint) (models.StudentTask, error) {
	record, err := s.studentTask.GetOwned(ctx, submissionID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudentTask{}, ErrSubmissionNotFound
		}
		return models.StudentTask{}, err
	}

	if record.Status != models.StudentTaskStatusSubmitted {
		return models.StudentTask{}, ErrNotSubmitted
	}

	return record, nil
}
