package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attendance statuses. An empty status means the day was not marked.
const (
	AttendanceStatusPresent         = "present"
	AttendanceStatusAbsentExcused   = "absent_excused"
	AttendanceStatusAbsentUnexcused = "absent_unexcused"
	AttendanceStatusLate            = "late"
)

// Attendance records one student's presence on one date within a quarter,
// independent of tasks. One row per (student, date, class).
type Attendance struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	StudentID uint           `gorm:"not null;uniqueIndex:idx_attendance_day" json:"student_id"`
	Date      datatypes.Date `gorm:"not null;uniqueIndex:idx_attendance_day" json:"date"`
	Quarter   int            `gorm:"not null" json:"quarter"`
	Grade     string         `gorm:"size:32;not null;uniqueIndex:idx_attendance_day" json:"grade"`
	Status    *string        `gorm:"size:32" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	Student User `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// ValidAttendanceStatus reports whether status is one of the marked values.
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendanceStatusPresent, AttendanceStatusAbsentExcused, AttendanceStatusAbsentUnexcused, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// ValidQuarter reports whether quarter is within the school year.
func ValidQuarter(quarter int) bool {
	return quarter >= 1 && quarter <= 4
}
