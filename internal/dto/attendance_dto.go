package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/shkola-api/internal/models"
)

// AttendanceRecordRequest marks one student's presence on one date.
type AttendanceRecordRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Quarter   int    `json:"quarter" validate:"required,min=1,max=4"`
	Status    string `json:"status" validate:"required,oneof=present absent_excused absent_unexcused late"`
}

// ParsedDate converts the wire date into the storage type.
func (r AttendanceRecordRequest) ParsedDate() (datatypes.Date, error) {
	day, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return datatypes.Date{}, err
	}
	return datatypes.Date(day), nil
}

// AttendanceResponse is the wire shape of one attendance record.
type AttendanceResponse struct {
	ID        uint    `json:"id"`
	StudentID uint    `json:"student_id"`
	Date      string  `json:"date"`
	Quarter   int     `json:"quarter"`
	Grade     string  `json:"grade"`
	Status    *string `json:"status"`
}

// NewAttendanceResponse maps an attendance entity into its view model.
func NewAttendanceResponse(record models.Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:        record.ID,
		StudentID: record.StudentID,
		Date:      time.Time(record.Date).Format("2006-01-02"),
		Quarter:   record.Quarter,
		Grade:     record.Grade,
		Status:    record.Status,
	}
}

// NewAttendanceResponseSlice maps a list of attendance records.
func NewAttendanceResponseSlice(records []models.Attendance) []AttendanceResponse {
	result := make([]AttendanceResponse, 0, len(records))
	for _, record := range records {
		result = append(result, NewAttendanceResponse(record))
	}
	return result
}
