package dto

import (
	"time"

	"github.com/noah-isme/shkola-api/internal/models"
)

// SubmitRequest is the multipart payload of a student submission. Files
// arrive alongside as multipart file parts.
type SubmitRequest struct {
	Comment string `form:"comment"`
}

// AcceptRequest records the teacher's decision to accept a submission.
type AcceptRequest struct {
	Grade   int     `json:"grade" validate:"required"`
	Comment *string `json:"comment"`
}

// RejectRequest returns a submission to the student with mandatory feedback.
type RejectRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// AnalyzeRequest is the manual trigger for AI analysis.
type AnalyzeRequest struct {
	TaskID       uint `json:"task_id" validate:"required,gt=0"`
	SubmissionID uint `json:"submission_id" validate:"required,gt=0"`
	Force        bool `json:"force"`
}

// AnalysisResponse carries the critique text.
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
}

// TaskLite summarizes a task inside submission responses.
type TaskLite struct {
	ID      uint       `json:"id"`
	Title   string     `json:"title"`
	Subject string     `json:"subject"`
	Grade   string     `json:"grade"`
	DueDate *time.Time `json:"due_date"`
}

// StudentLite summarizes a student inside submission responses.
type StudentLite struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// SubmissionResponse is the teacher-facing shape of an assignment record.
type SubmissionResponse struct {
	ID             uint        `json:"id"`
	TaskID         uint        `json:"task_id"`
	StudentID      uint        `json:"student_id"`
	Status         string      `json:"status"`
	Comment        string      `json:"comment"`
	SubmittedAt    *time.Time  `json:"submitted_at"`
	TeacherComment *string     `json:"teacher_comment"`
	Grade          *int        `json:"grade"`
	AIAnalysis     *string     `json:"ai_analysis"`
	Task           TaskLite    `json:"task"`
	Student        StudentLite `json:"student"`
}

// NewSubmissionResponse maps an assignment record into its view model.
func NewSubmissionResponse(record models.StudentTask) SubmissionResponse {
	return SubmissionResponse{
		ID:             record.ID,
		TaskID:         record.TaskID,
		StudentID:      record.StudentID,
		Status:         record.Status,
		Comment:        record.Comment,
		SubmittedAt:    record.SubmittedAt,
		TeacherComment: record.TeacherComment,
		Grade:          record.Grade,
		AIAnalysis:     record.AIAnalysis,
		Task: TaskLite{
			ID:      record.Task.ID,
			Title:   record.Task.Title,
			Subject: record.Task.Subject,
			Grade:   record.Task.Grade,
			DueDate: record.Task.DueDate,
		},
		Student: StudentLite{
			ID:       record.Student.ID,
			FullName: record.Student.FullName,
			Email:    record.Student.Email,
		},
	}
}

// NewSubmissionResponseSlice maps a list of assignment records.
func NewSubmissionResponseSlice(records []models.StudentTask) []SubmissionResponse {
	result := make([]SubmissionResponse, 0, len(records))
	for _, record := range records {
		result = append(result, NewSubmissionResponse(record))
	}
	return result
}
