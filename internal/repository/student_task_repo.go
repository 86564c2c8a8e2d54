package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/models"
)

// StudentTaskFilter allows narrowing assignment queries.
type StudentTaskFilter struct {
	TaskID    *uint
	StudentID *uint
	Status    *string
}

// StudentTaskRepository defines data operations for per-student assignment
// records. GetOwned joins through tasks so a record whose task belongs to a
// different teacher reads as not found.
type StudentTaskRepository interface {
	List(ctx context.Context, filter StudentTaskFilter) ([]models.StudentTask, error)
	GetByID(ctx context.Context, id uint) (models.StudentTask, error)
	GetOwned(ctx context.Context, id, teacherID uint) (models.StudentTask, error)
	GetByTaskAndStudent(ctx context.Context, taskID, studentID uint) (models.StudentTask, error)
	Create(ctx context.Context, record *models.StudentTask) error
	CreateBatch(ctx context.Context, records []*models.StudentTask) error
	Update(ctx context.Context, record *models.StudentTask) error
	Delete(ctx context.Context, id uint) error
	SaveAnalysis(ctx context.Context, id uint, analysis string) error
	ListPendingForTeacher(ctx context.Context, teacherID uint) ([]models.StudentTask, error)
	ListGradedForStudent(ctx context.Context, studentID uint) ([]models.StudentTask, error)
}

type studentTaskRepository struct {
	db *gorm.DB
}

// NewStudentTaskRepository instantiates the repository.
func NewStudentTaskRepository(db *gorm.DB) StudentTaskRepository {
	return &studentTaskRepository{db: db}
}

func (r *studentTaskRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.StudentTask{}).
		Preload("Task").
		Preload("Student")
}

func (r *studentTaskRepository) List(ctx context.Context, filter StudentTaskFilter) ([]models.StudentTask, error) {
	query := r.baseQuery(ctx)

	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var records []models.StudentTask
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *studentTaskRepository) GetByID(ctx context.Context, id uint) (models.StudentTask, error) {
	var record models.StudentTask
	if err := r.baseQuery(ctx).First(&record, id).Error; err != nil {
		return models.StudentTask{}, err
	}

	return record, nil
}

func (r *studentTaskRepository) GetOwned(ctx context.Context, id, teacherID uint) (models.StudentTask, error) {
	var record models.StudentTask
	if err := r.baseQuery(ctx).
		Joins("JOIN tasks ON tasks.id = student_tasks.task_id").
		Where("student_tasks.id = ?", id).
		Where("tasks.teacher_id = ?", teacherID).
		First(&record).Error; err != nil {
		return models.StudentTask{}, err
	}

	return record, nil
}

func (r *studentTaskRepository) GetByTaskAndStudent(ctx context.Context, taskID, studentID uint) (models.StudentTask, error) {
	var record models.StudentTask
	if err := r.baseQuery(ctx).
		Where("task_id = ?", taskID).
		Where("student_id = ?", studentID).
		First(&record).Error; err != nil {
		return models.StudentTask{}, err
	}

	return record, nil
}

func (r *studentTaskRepository) Create(ctx context.Context, record *models.StudentTask) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *studentTaskRepository) CreateBatch(ctx context.Context, records []*models.StudentTask) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

func (r *studentTaskRepository) Update(ctx context.Context, record *models.StudentTask) error {
	return r.db.WithContext(ctx).Omit("Task", "Student").Save(record).Error
}

func (r *studentTaskRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.StudentTask{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveAnalysis writes only the critique column. The background analysis job
// calls this on its own session, after the triggering request has finished.
func (r *studentTaskRepository) SaveAnalysis(ctx context.Context, id uint, analysis string) error {
	result := r.db.WithContext(ctx).Model(&models.StudentTask{}).
		Where("id = ?", id).
		Update("ai_analysis", analysis)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentTaskRepository) ListPendingForTeacher(ctx context.Context, teacherID uint) ([]models.StudentTask, error) {
	var records []models.StudentTask
	if err := r.baseQuery(ctx).
		Joins("JOIN tasks ON tasks.id = student_tasks.task_id").
		Where("tasks.teacher_id = ?", teacherID).
		Where("student_tasks.status = ?", models.StudentTaskStatusSubmitted).
		Order("student_tasks.submitted_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *studentTaskRepository) ListGradedForStudent(ctx context.Context, studentID uint) ([]models.StudentTask, error) {
	var records []models.StudentTask
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("status = ?", models.StudentTaskStatusAccepted).
		Where("grade IS NOT NULL").
		Order("updated_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
