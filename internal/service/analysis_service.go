package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
	"github.com/noah-isme/shkola-api/pkg/genai"
)

// AnalysisService produces and caches AI critiques of submissions.
//
// Caching is by presence: an existing non-placeholder critique is returned
// without an outbound call unless force is set. The placeholder stored after
// a failed extraction never satisfies the cache, so the next non-forced call
// regenerates.
type AnalysisService interface {
	Analyze(ctx context.Context, teacherID uint, payload dto.AnalyzeRequest) (dto.AnalysisResponse, error)
	Schedule(submissionID uint, taskDescription, studentAnswer string)
}

type analysisService struct {
	tasks       repository.TaskRepository
	studentTask repository.StudentTaskRepository
	critic      genai.Critic
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewAnalysisService constructs an AnalysisService instance.
func NewAnalysisService(tasks repository.TaskRepository, studentTasks repository.StudentTaskRepository, critic genai.Critic, validate *validator.Validate, logger zerolog.Logger) AnalysisService {
	return &analysisService{
		tasks:       tasks,
		studentTask: studentTasks,
		critic:      critic,
		validator:   validate,
		tracer:      otel.Tracer("github.com/noah-isme/shkola-api/internal/service/analysis"),
		logger:      logger.With().Str("component", "analysis_service").Logger(),
	}
}

// Analyze is the synchronous, teacher-triggered form: the caller awaits the
// provider round trip and receives the critique text.
func (s *analysisService) Analyze(ctx context.Context, teacherID uint, payload dto.AnalyzeRequest) (dto.AnalysisResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze", trace.WithAttributes(
		attribute.Int64("analysis.submission_id", int64(payload.SubmissionID)),
		attribute.Bool("analysis.force", payload.Force),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AnalysisResponse{}, err
	}

	task, err := s.tasks.GetOwned(ctx, payload.TaskID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnalysisResponse{}, ErrTaskNotFound
		}
		return dto.AnalysisResponse{}, err
	}

	record, err := s.studentTask.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnalysisResponse{}, ErrSubmissionNotFound
		}
		return dto.AnalysisResponse{}, err
	}
	if record.TaskID != task.ID {
		return dto.AnalysisResponse{}, ErrSubmissionNotFound
	}

	if !payload.Force && record.HasAnalysis() {
		span.SetAttributes(attribute.Bool("analysis.cache_hit", true))
		return dto.AnalysisResponse{Analysis: *record.AIAnalysis}, nil
	}

	text, err := s.critic.Critique(ctx, genai.AnalysisInput{
		TaskDescription: task.Description,
		StudentAnswer:   record.Comment,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "critique_failed")
		return dto.AnalysisResponse{}, err
	}

	if text == "" {
		text = models.AnalysisPlaceholder
	}

	if err := s.studentTask.SaveAnalysis(ctx, record.ID, text); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		return dto.AnalysisResponse{}, err
	}

	s.logger.Info().Uint("submission_id", record.ID).Msg("analysis saved")

	return dto.AnalysisResponse{Analysis: text}, nil
}

// Schedule runs the analysis as a detached background task, fired right
// after a submission commit. It must not block the triggering request and
// must not reuse anything request-scoped: the repository opens its own
// database session, and the provider's 45s timeout is the only bound.
func (s *analysisService) Schedule(submissionID uint, taskDescription, studentAnswer string) {
	go s.runDetached(submissionID, taskDescription, studentAnswer)
}

func (s *analysisService) runDetached(submissionID uint, taskDescription, studentAnswer string) {
	ctx := context.Background()

	text, err := s.critic.Critique(ctx, genai.AnalysisInput{
		TaskDescription: taskDescription,
		StudentAnswer:   studentAnswer,
	})
	if err != nil {
		// The triggering request already returned; failures are log-only.
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("background analysis failed")
		return
	}

	if text == "" {
		s.logger.Warn().Uint("submission_id", submissionID).Msg("background analysis produced no text")
		return
	}

	if err := s.studentTask.SaveAnalysis(ctx, submissionID, text); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to persist background analysis")
		return
	}

	s.logger.Info().Uint("submission_id", submissionID).Msg("background analysis saved")
}
