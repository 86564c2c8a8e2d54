package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/models"
)

// AttendanceRepository defines persistence operations for attendance records.
type AttendanceRepository interface {
	ListForQuarter(ctx context.Context, grade string, quarter int) ([]models.Attendance, error)
	GetForDay(ctx context.Context, studentID uint, date datatypes.Date, grade string) (models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	Update(ctx context.Context, record *models.Attendance) error
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ListForQuarter(ctx context.Context, grade string, quarter int) ([]models.Attendance, error) {
	var records []models.Attendance
	if err := r.db.WithContext(ctx).
		Where("grade = ?", grade).
		Where("quarter = ?", quarter).
		Order("date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) GetForDay(ctx context.Context, studentID uint, date datatypes.Date, grade string) (models.Attendance, error) {
	var record models.Attendance
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("date = ?", date).
		Where("grade = ?", grade).
		First(&record).Error; err != nil {
		return models.Attendance{}, err
	}

	return record, nil
}

func (r *attendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepository) Update(ctx context.Context, record *models.Attendance) error {
	return r.db.WithContext(ctx).Save(record).Error
}
