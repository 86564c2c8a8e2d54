package dto

import (
	"time"

	"github.com/noah-isme/shkola-api/internal/models"
)

// GradebookCell is one (student, task) intersection of the gradebook matrix.
type GradebookCell struct {
	TaskID uint   `json:"task_id"`
	Status string `json:"status"`
	Grade  *int   `json:"grade"`
}

// GradebookRow collects one student's cells across every task of the class.
type GradebookRow struct {
	StudentID   uint            `json:"student_id"`
	StudentName string          `json:"student_name"`
	Cells       []GradebookCell `json:"cells"`
}

// GradebookResponse is the full students × tasks matrix for one class.
type GradebookResponse struct {
	Grade    string         `json:"grade"`
	Tasks    []TaskResponse `json:"tasks"`
	Students []GradebookRow `json:"students"`
}

// GradeEntry is one accepted grade in a student's history.
type GradeEntry struct {
	TaskID    uint      `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	Grade     int       `json:"grade"`
	GradedAt  time.Time `json:"graded_at"`
}

// SubjectGrades groups a student's grade history by subject.
type SubjectGrades struct {
	Subject string       `json:"subject"`
	Grades  []GradeEntry `json:"grades"`
}

// StudentGradesResponse is the per-student subject-grouped grade history.
type StudentGradesResponse struct {
	Student  UserResponse    `json:"student"`
	Subjects []SubjectGrades `json:"subjects"`
}

// NewGradebookCell maps one assignment record into a matrix cell. A nil
// record renders as the read-time default "assigned".
func NewGradebookCell(taskID uint, record *models.StudentTask) GradebookCell {
	cell := GradebookCell{
		TaskID: taskID,
		Status: models.StudentTaskStatusAssigned,
	}

	if record != nil {
		if record.Status != "" {
			cell.Status = record.Status
		}
		cell.Grade = record.Grade
	}

	return cell
}
