package models

import "time"

// Roles recognised by the access-control gate.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User represents an account: an admin, a teacher or a student.
// Students carry a class label in Grade; teachers carry a verification flag
// that an admin flips after reviewing the account.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName       string    `gorm:"size:255;not null" json:"full_name"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	Role           string    `gorm:"size:32;not null" json:"role"`
	Grade          *string   `gorm:"size:32" json:"grade"`
	IsVerified     bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsStudent reports whether the account belongs to a student.
func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}

// GradeLabel returns the class label or an empty string for non-students.
func (u User) GradeLabel() string {
	if u.Grade == nil {
		return ""
	}
	return *u.Grade
}
