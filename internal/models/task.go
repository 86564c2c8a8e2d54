package models

import "time"

// Task is a unit of work a teacher assigns to students of one class.
// Ownership is fixed at creation; deleting a task cascades to its
// StudentTask rows and attached files.
type Task struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"type:text;not null" json:"description"`
	Subject          string     `gorm:"size:255;not null" json:"subject"`
	Reason           string     `gorm:"size:255;not null" json:"reason"`
	DueDate          *time.Time `json:"due_date"`
	Grade            string     `gorm:"size:32;not null" json:"grade"`
	TeacherID        uint       `gorm:"not null;index" json:"teacher_id"`
	EnableAIAnalysis bool       `gorm:"not null;default:false" json:"enable_ai_analysis"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Teacher      User          `gorm:"foreignKey:TeacherID" json:"-"`
	StudentTasks []StudentTask `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Files        []TaskFile    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TaskFile records one attachment uploaded by the owning teacher.
type TaskFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	StoredName   string    `gorm:"size:255;not null" json:"stored_name"`
	Path         string    `gorm:"size:512;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MaxTaskFiles caps the number of attachments per task.
const MaxTaskFiles = 5
