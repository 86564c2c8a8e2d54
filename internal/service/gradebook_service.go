package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
)

// ErrGradesForbidden denies access to another student's grade history.
var ErrGradesForbidden = errors.New("no access to this student's grades")

// GradebookService assembles class-wide and per-student grade views.
type GradebookService interface {
	ClassGradebook(ctx context.Context, teacherID uint, grade string) (dto.GradebookResponse, error)
	StudentGrades(ctx context.Context, requesterID uint, requesterRole string, studentID uint) (dto.StudentGradesResponse, error)
}

type gradebookService struct {
	tasks       repository.TaskRepository
	studentTask repository.StudentTaskRepository
	users       repository.UserRepository
	logger      zerolog.Logger
}

// NewGradebookService constructs a GradebookService instance.
func NewGradebookService(tasks repository.TaskRepository, studentTasks repository.StudentTaskRepository, users repository.UserRepository, logger zerolog.Logger) GradebookService {
	return &gradebookService{
		tasks:       tasks,
		studentTask: studentTasks,
		users:       users,
		logger:      logger.With().Str("component", "gradebook_service").Logger(),
	}
}

// ClassGradebook builds the students × tasks matrix for one class. Only the
// requesting teacher's tasks appear as columns.
func (s *gradebookService) ClassGradebook(ctx context.Context, teacherID uint, grade string) (dto.GradebookResponse, error) {
	grade = strings.TrimSpace(grade)

	tasks, err := s.tasks.ListByGrade(ctx, grade, &teacherID)
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	students, err := s.users.ListStudentsByGrade(ctx, grade)
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	// One lookup per task keeps the query count proportional to columns,
	// not cells.
	records := make(map[uint]map[uint]models.StudentTask, len(tasks))
	for _, task := range tasks {
		list, err := s.studentTask.List(ctx, repository.StudentTaskFilter{TaskID: &task.ID})
		if err != nil {
			return dto.GradebookResponse{}, err
		}
		byStudent := make(map[uint]models.StudentTask, len(list))
		for _, record := range list {
			byStudent[record.StudentID] = record
		}
		records[task.ID] = byStudent
	}

	rows := make([]dto.GradebookRow, 0, len(students))
	for _, student := range students {
		row := dto.GradebookRow{
			StudentID:   student.ID,
			StudentName: student.FullName,
			Cells:       make([]dto.GradebookCell, 0, len(tasks)),
		}
		for _, task := range tasks {
			var record *models.StudentTask
			if found, ok := records[task.ID][student.ID]; ok {
				record = &found
			}
			row.Cells = append(row.Cells, dto.NewGradebookCell(task.ID, record))
		}
		rows = append(rows, row)
	}

	return dto.GradebookResponse{
		Grade:    grade,
		Tasks:    dto.NewTaskResponseSlice(tasks),
		Students: rows,
	}, nil
}

// StudentGrades returns a student's accepted grades grouped by subject.
// Students may read their own history; teachers may read a student's history
// only when they have at least one task assigned to that student's class.
func (s *gradebookService) StudentGrades(ctx context.Context, requesterID uint, requesterRole string, studentID uint) (dto.StudentGradesResponse, error) {
	student, err := s.users.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentGradesResponse{}, ErrStudentNotFound
		}
		return dto.StudentGradesResponse{}, err
	}

	if err := s.authorize(ctx, requesterID, requesterRole, student); err != nil {
		return dto.StudentGradesResponse{}, err
	}

	records, err := s.studentTask.ListGradedForStudent(ctx, studentID)
	if err != nil {
		return dto.StudentGradesResponse{}, err
	}

	bySubject := make(map[string][]dto.GradeEntry)
	for _, record := range records {
		if record.Grade == nil {
			continue
		}
		entry := dto.GradeEntry{
			TaskID:    record.TaskID,
			TaskTitle: record.Task.Title,
			Grade:     *record.Grade,
			GradedAt:  record.UpdatedAt,
		}
		bySubject[record.Task.Subject] = append(bySubject[record.Task.Subject], entry)
	}

	subjects := make([]dto.SubjectGrades, 0, len(bySubject))
	for subject, grades := range bySubject {
		subjects = append(subjects, dto.SubjectGrades{Subject: subject, Grades: grades})
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Subject < subjects[j].Subject })

	return dto.StudentGradesResponse{
		Student:  dto.NewUserResponse(student),
		Subjects: subjects,
	}, nil
}

func (s *gradebookService) authorize(ctx context.Context, requesterID uint, requesterRole string, student models.User) error {
	switch requesterRole {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if requesterID == student.ID {
			return nil
		}
		return ErrGradesForbidden
	case models.RoleTeacher:
		ok, err := s.tasks.TeacherHasTaskForGrade(ctx, requesterID, student.GradeLabel())
		if err != nil {
			return err
		}
		if !ok {
			return ErrGradesForbidden
		}
		return nil
	default:
		return ErrGradesForbidden
	}
}
