package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
)

// ErrTeacherNotFound indicates the teacher account was not located.
var ErrTeacherNotFound = errors.New("teacher not found")

// ErrStudentNotFound indicates the student account was not located.
var ErrStudentNotFound = errors.New("student not found")

// ErrAlreadyVerified indicates the teacher was confirmed earlier.
var ErrAlreadyVerified = errors.New("teacher already confirmed")

const generatedRosterSize = 30

// AdminService covers teacher verification and student roster management.
type AdminService interface {
	ListTeachers(ctx context.Context) ([]dto.UserResponse, error)
	ApproveTeacher(ctx context.Context, teacherID uint) (dto.UserResponse, error)
	ListStudents(ctx context.Context, grade string) ([]dto.UserResponse, error)
	UpdateStudent(ctx context.Context, studentID uint, payload dto.StudentUpdateRequest) (dto.UserResponse, error)
	DeleteStudent(ctx context.Context, studentID uint) error
	GenerateStudents(ctx context.Context, payload dto.StudentGenerationRequest) (dto.StudentGenerationResponse, error)
}

type adminService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) AdminService {
	return &adminService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) ListTeachers(ctx context.Context) ([]dto.UserResponse, error) {
	teachers, err := s.users.ListTeachers(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewUserResponseSlice(teachers), nil
}

func (s *adminService) ApproveTeacher(ctx context.Context, teacherID uint) (dto.UserResponse, error) {
	teacher, err := s.users.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrTeacherNotFound
		}
		return dto.UserResponse{}, err
	}

	if teacher.IsVerified {
		return dto.UserResponse{}, ErrAlreadyVerified
	}

	teacher.IsVerified = true
	if err := s.users.Update(ctx, &teacher); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("teacher_id", teacher.ID).Msg("teacher approved")

	return dto.NewUserResponse(teacher), nil
}

func (s *adminService) ListStudents(ctx context.Context, grade string) ([]dto.UserResponse, error) {
	students, err := s.users.ListStudentsByGrade(ctx, strings.TrimSpace(grade))
	if err != nil {
		return nil, err
	}

	return dto.NewUserResponseSlice(students), nil
}

func (s *adminService) UpdateStudent(ctx context.Context, studentID uint, payload dto.StudentUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	student, err := s.users.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrStudentNotFound
		}
		return dto.UserResponse{}, err
	}

	if payload.FullName != nil {
		student.FullName = strings.TrimSpace(*payload.FullName)
	}

	if payload.Grade != nil {
		grade := strings.TrimSpace(*payload.Grade)
		student.Grade = &grade
	}

	if payload.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*payload.Password), bcrypt.DefaultCost)
		if err != nil {
			return dto.UserResponse{}, err
		}
		student.HashedPassword = string(hash)
	}

	if err := s.users.Update(ctx, &student); err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(student), nil
}

func (s *adminService) DeleteStudent(ctx context.Context, studentID uint) error {
	if err := s.users.DeleteStudent(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	s.logger.Info().Uint("student_id", studentID).Msg("student removed")

	return nil
}

// GenerateStudents provisions a credentialed roster for one class. Initial
// passwords are returned once and stored only as hashes.
func (s *adminService) GenerateStudents(ctx context.Context, payload dto.StudentGenerationRequest) (dto.StudentGenerationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentGenerationResponse{}, err
	}

	grade := strings.TrimSpace(payload.Grade)
	// The batch suffix keeps emails unique across classes whose labels
	// transliterate to the same slug (e.g. "9-МАТ" and "9-ФИЗ").
	slug := rosterSlug(grade) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]

	users := make([]*models.User, 0, generatedRosterSize)
	passwords := make([]string, 0, generatedRosterSize)

	for i := 1; i <= generatedRosterSize; i++ {
		password, err := randomPassword(10)
		if err != nil {
			return dto.StudentGenerationResponse{}, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return dto.StudentGenerationResponse{}, err
		}

		gradeCopy := grade
		users = append(users, &models.User{
			Email:          fmt.Sprintf("student%02d.%s@school.local", i, slug),
			FullName:       fmt.Sprintf("Student %02d (%s)", i, grade),
			HashedPassword: string(hash),
			Role:           models.RoleStudent,
			Grade:          &gradeCopy,
		})
		passwords = append(passwords, password)
	}

	if err := s.users.CreateBatch(ctx, users); err != nil {
		return dto.StudentGenerationResponse{}, err
	}

	response := dto.StudentGenerationResponse{Students: make([]dto.GeneratedStudent, 0, len(users))}
	for i, user := range users {
		response.Students = append(response.Students, dto.GeneratedStudent{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Password: passwords[i],
		})
	}

	s.logger.Info().Str("grade", grade).Int("count", len(users)).Msg("student roster generated")

	return response, nil
}

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

func randomPassword(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range result {
		index, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = passwordAlphabet[index.Int64()]
	}
	return string(result), nil
}

func rosterSlug(grade string) string {
	slug := strings.ToLower(grade)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	return strings.Trim(slug, "-")
}
