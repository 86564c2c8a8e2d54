package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
)

// ErrStudentNotInGrade rejects attendance marks for students outside the class.
var ErrStudentNotInGrade = errors.New("student does not belong to this grade")

// ErrInvalidQuarter rejects quarters outside the school year.
var ErrInvalidQuarter = errors.New("quarter must be between 1 and 4")

// AttendanceService maintains the per-quarter attendance sheet of a class.
type AttendanceService interface {
	QuarterSheet(ctx context.Context, grade string, quarter int) ([]dto.AttendanceResponse, error)
	Record(ctx context.Context, grade string, payload dto.AttendanceRecordRequest) (dto.AttendanceResponse, error)
}

type attendanceService struct {
	attendance repository.AttendanceRepository
	users      repository.UserRepository
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(attendance repository.AttendanceRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		attendance: attendance,
		users:      users,
		validator:  validate,
		logger:     logger.With().Str("component", "attendance_service").Logger(),
	}
}

func (s *attendanceService) QuarterSheet(ctx context.Context, grade string, quarter int) ([]dto.AttendanceResponse, error) {
	if !models.ValidQuarter(quarter) {
		return nil, ErrInvalidQuarter
	}

	records, err := s.attendance.ListForQuarter(ctx, strings.TrimSpace(grade), quarter)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(records), nil
}

// Record upserts one student's mark for one day. A second mark for the same
// (student, date, class) overwrites the first.
func (s *attendanceService) Record(ctx context.Context, grade string, payload dto.AttendanceRecordRequest) (dto.AttendanceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttendanceResponse{}, err
	}

	grade = strings.TrimSpace(grade)

	student, err := s.users.GetStudent(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrStudentNotFound
		}
		return dto.AttendanceResponse{}, err
	}
	if student.GradeLabel() != grade {
		return dto.AttendanceResponse{}, ErrStudentNotInGrade
	}

	date, err := payload.ParsedDate()
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	status := payload.Status

	existing, err := s.attendance.GetForDay(ctx, payload.StudentID, date, grade)
	switch {
	case err == nil:
		existing.Quarter = payload.Quarter
		existing.Status = &status
		if err := s.attendance.Update(ctx, &existing); err != nil {
			return dto.AttendanceResponse{}, err
		}
		return dto.NewAttendanceResponse(existing), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		record := models.Attendance{
			StudentID: payload.StudentID,
			Date:      date,
			Quarter:   payload.Quarter,
			Grade:     grade,
			Status:    &status,
		}
		if err := s.attendance.Create(ctx, &record); err != nil {
			return dto.AttendanceResponse{}, err
		}
		return dto.NewAttendanceResponse(record), nil
	default:
		return dto.AttendanceResponse{}, err
	}
}
