package dto

import (
	"time"

	"github.com/noah-isme/shkola-api/internal/models"
)

// TaskCreateRequest describes a new task plus the students it fans out to.
type TaskCreateRequest struct {
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description" validate:"required"`
	Subject          string     `json:"subject" validate:"required"`
	Reason           string     `json:"reason" validate:"required"`
	DueDate          *time.Time `json:"due_date"`
	Grade            string     `json:"grade" validate:"required"`
	EnableAIAnalysis bool       `json:"enable_ai_analysis"`
	StudentIDs       []uint     `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// TaskUpdateRequest updates task fields and, when StudentIDs is present,
// reconciles the roster.
type TaskUpdateRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=1"`
	Description      *string    `json:"description" validate:"omitempty,min=1"`
	Subject          *string    `json:"subject" validate:"omitempty,min=1"`
	Reason           *string    `json:"reason" validate:"omitempty,min=1"`
	DueDate          *time.Time `json:"due_date"`
	EnableAIAnalysis *bool      `json:"enable_ai_analysis"`
	StudentIDs       *[]uint    `json:"student_ids" validate:"omitempty,dive,gt=0"`
}

// TaskResponse is the teacher-facing shape of a task.
type TaskResponse struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Subject          string     `json:"subject"`
	Reason           string     `json:"reason"`
	DueDate          *time.Time `json:"due_date"`
	Grade            string     `json:"grade"`
	TeacherID        uint       `json:"teacher_id"`
	TeacherName      string     `json:"teacher_name,omitempty"`
	EnableAIAnalysis bool       `json:"enable_ai_analysis"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewTaskResponse maps a task entity into its view model.
func NewTaskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		Subject:          task.Subject,
		Reason:           task.Reason,
		DueDate:          task.DueDate,
		Grade:            task.Grade,
		TeacherID:        task.TeacherID,
		TeacherName:      task.Teacher.FullName,
		EnableAIAnalysis: task.EnableAIAnalysis,
		CreatedAt:        task.CreatedAt,
	}
}

// NewTaskResponseSlice maps a list of tasks.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	result := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, NewTaskResponse(task))
	}
	return result
}

// TaskFileResponse describes one stored task attachment.
type TaskFileResponse struct {
	ID           uint   `json:"id"`
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
}

// NewTaskFileResponse maps an attachment entity.
func NewTaskFileResponse(file models.TaskFile) TaskFileResponse {
	return TaskFileResponse{
		ID:           file.ID,
		OriginalName: file.OriginalName,
		StoredName:   file.StoredName,
	}
}

// NewTaskFileResponseSlice maps a list of attachments.
func NewTaskFileResponseSlice(files []models.TaskFile) []TaskFileResponse {
	result := make([]TaskFileResponse, 0, len(files))
	for _, file := range files {
		result = append(result, NewTaskFileResponse(file))
	}
	return result
}

// StudentTaskView is one item of the student's assignment list: the task
// merged with the student's own progress. Status falls back to "assigned"
// when no assignment row exists yet.
type StudentTaskView struct {
	ID             uint       `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Subject        string     `json:"subject"`
	Reason         string     `json:"reason"`
	DueDate        *time.Time `json:"due_date"`
	Grade          string     `json:"grade"`
	TeacherName    string     `json:"teacher_name"`
	Files          []string   `json:"files"`
	Status         string     `json:"status"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	Comment        string     `json:"comment"`
	TeacherComment *string    `json:"teacher_comment"`
	TeacherGrade   *int       `json:"teacher_grade"`
	StudentFiles   []string   `json:"student_files"`
}

// NewStudentTaskView merges a task with the student's assignment record.
// record may be nil when the row does not exist yet.
func NewStudentTaskView(task models.Task, record *models.StudentTask, taskFiles, studentFiles []string) StudentTaskView {
	view := StudentTaskView{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Subject:      task.Subject,
		Reason:       task.Reason,
		DueDate:      task.DueDate,
		Grade:        task.Grade,
		TeacherName:  task.Teacher.FullName,
		Files:        taskFiles,
		Status:       models.StudentTaskStatusAssigned,
		StudentFiles: studentFiles,
	}

	if record != nil {
		if record.Status != "" {
			view.Status = record.Status
		}
		view.SubmittedAt = record.SubmittedAt
		view.Comment = record.Comment
		view.TeacherComment = record.TeacherComment
		view.TeacherGrade = record.Grade
	}

	return view
}

// Page wraps a paginated listing.
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Pages int64       `json:"pages"`
}

// NewPage assembles pagination metadata around items.
func NewPage(items interface{}, total int64, page, size int) Page {
	pages := int64(1)
	if size > 0 {
		pages = (total + int64(size) - 1) / int64(size)
		if pages < 1 {
			pages = 1
		}
	}
	return Page{Items: items, Total: total, Page: page, Size: size, Pages: pages}
}
