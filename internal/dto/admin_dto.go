package dto

// StudentUpdateRequest is the admin payload for editing a student account.
type StudentUpdateRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Grade    *string `json:"grade" validate:"omitempty,min=1"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// StudentGenerationRequest asks for a credentialed roster for one class.
type StudentGenerationRequest struct {
	Grade string `json:"grade" validate:"required"`
}

// GeneratedStudent is one created account with its initial password, shown
// once at generation time.
type GeneratedStudent struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// StudentGenerationResponse lists the freshly created accounts.
type StudentGenerationResponse struct {
	Students []GeneratedStudent `json:"students"`
}

// CourseGradeInfo is one row of the LMS grade-activity report: the course
// and how long ago the most recent grade was recorded in it.
type CourseGradeInfo struct {
	CourseTitle        string  `json:"course_title"`
	ClassName          *string `json:"class_name"`
	LastGradeDate      *string `json:"last_grade_date"`
	DaysSinceLastGrade *int    `json:"days_since_last_grade"`
}
