package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/models"
)

// TaskRepository defines persistence operations for tasks and their files.
// Lookups that take a teacherID fold the ownership check into the query, so
// a task belonging to another teacher reads as not found.
type TaskRepository interface {
	GetByID(ctx context.Context, id uint) (models.Task, error)
	GetOwned(ctx context.Context, id, teacherID uint) (models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint) error
	ListByGrade(ctx context.Context, grade string, teacherID *uint) ([]models.Task, error)
	ListForStudent(ctx context.Context, studentID uint, page, size int) ([]models.Task, int64, error)
	TeacherHasTaskForGrade(ctx context.Context, teacherID uint, grade string) (bool, error)

	AddFile(ctx context.Context, file *models.TaskFile) error
	ListFiles(ctx context.Context, taskID uint) ([]models.TaskFile, error)
	GetFile(ctx context.Context, taskID uint, storedName string) (models.TaskFile, error)
	DeleteFile(ctx context.Context, id uint) error
	CountFiles(ctx context.Context, taskID uint) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates a GORM-backed repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Preload("Teacher").First(&task, id).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

func (r *taskRepository) GetOwned(ctx context.Context, id, teacherID uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Preload("StudentTasks").
		Where("id = ?", id).
		Where("teacher_id = ?", teacherID).
		First(&task).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Teacher", "StudentTasks", "Files").Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.StudentTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskFile{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *taskRepository) ListByGrade(ctx context.Context, grade string, teacherID *uint) ([]models.Task, error) {
	query := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("grade = ?", grade)

	if teacherID != nil {
		query = query.Where("teacher_id = ?", *teacherID)
	}

	var tasks []models.Task
	if err := query.Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) ListForStudent(ctx context.Context, studentID uint, page, size int) ([]models.Task, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Task{}).
		Joins("JOIN student_tasks ON student_tasks.task_id = tasks.id").
		Where("student_tasks.student_id = ?", studentID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}

	var tasks []models.Task
	if err := base.
		Preload("Teacher").
		Order("tasks.id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *taskRepository) TeacherHasTaskForGrade(ctx context.Context, teacherID uint, grade string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("teacher_id = ?", teacherID).
		Where("grade = ?", grade).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *taskRepository) AddFile(ctx context.Context, file *models.TaskFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *taskRepository) ListFiles(ctx context.Context, taskID uint) ([]models.TaskFile, error) {
	var files []models.TaskFile
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}

	return files, nil
}

func (r *taskRepository) GetFile(ctx context.Context, taskID uint, storedName string) (models.TaskFile, error) {
	var file models.TaskFile
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Where("stored_name = ?", storedName).
		First(&file).Error; err != nil {
		return models.TaskFile{}, err
	}

	return file, nil
}

func (r *taskRepository) DeleteFile(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.TaskFile{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) CountFiles(ctx context.Context, taskID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TaskFile{}).
		Where("task_id = ?", taskID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
