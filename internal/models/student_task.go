package models

import "time"

// StudentTask states. The lifecycle is
// assigned → submitted → accepted | rejected, with rejected → submitted
// allowed for resubmission. Accepted is terminal.
const (
	StudentTaskStatusAssigned  = "assigned"
	StudentTaskStatusSubmitted = "submitted"
	StudentTaskStatusAccepted  = "accepted"
	StudentTaskStatusRejected  = "rejected"
)

// AnalysisPlaceholder is stored when the AI provider answered but no usable
// text could be extracted. It never satisfies the analysis cache.
const AnalysisPlaceholder = "AI could not produce an analysis."

// StudentTask is the per-student assignment record for one task. The
// composite unique index makes duplicate assignment attempts fail atomically
// instead of racing on query-then-insert.
type StudentTask struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TaskID         uint       `gorm:"not null;uniqueIndex:idx_task_student" json:"task_id"`
	StudentID      uint       `gorm:"not null;uniqueIndex:idx_task_student" json:"student_id"`
	Status         string     `gorm:"size:32;not null;default:assigned" json:"status"`
	Comment        string     `gorm:"type:text" json:"comment"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	TeacherComment *string    `gorm:"type:text" json:"teacher_comment"`
	Grade          *int       `json:"grade"`
	AIAnalysis     *string    `gorm:"type:text" json:"ai_analysis"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Task    Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student User `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// CanSubmit reports whether a student may (re)submit work for this record.
func (st StudentTask) CanSubmit() bool {
	return st.Status != StudentTaskStatusAccepted
}

// HasAnalysis reports whether a cached, non-placeholder critique exists.
func (st StudentTask) HasAnalysis() bool {
	return st.AIAnalysis != nil && *st.AIAnalysis != "" && *st.AIAnalysis != AnalysisPlaceholder
}

// ValidReviewGrade reports whether the numeric score a teacher records on
// acceptance is in the allowed range.
func ValidReviewGrade(grade int) bool {
	return grade >= 2 && grade <= 5
}
