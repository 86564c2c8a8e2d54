package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/models"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetStudent(ctx context.Context, id uint) (models.User, error)
	GetTeacher(ctx context.Context, id uint) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateBatch(ctx context.Context, users []*models.User) error
	Update(ctx context.Context, user *models.User) error
	DeleteStudent(ctx context.Context, id uint) error
	ListTeachers(ctx context.Context) ([]models.User, error)
	ListStudentsByGrade(ctx context.Context, grade string) ([]models.User, error)
	ListStudentsByIDs(ctx context.Context, ids []uint) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetStudent(ctx context.Context, id uint) (models.User, error) {
	return r.getWithRole(ctx, id, models.RoleStudent)
}

func (r *userRepository) GetTeacher(ctx context.Context, id uint) (models.User, error) {
	return r.getWithRole(ctx, id, models.RoleTeacher)
}

func (r *userRepository) getWithRole(ctx context.Context, id uint, role string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("role = ?", role).
		First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) CreateBatch(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(users).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) DeleteStudent(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Where("role = ?", models.RoleStudent).
		Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) ListTeachers(ctx context.Context) ([]models.User, error) {
	var teachers []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", models.RoleTeacher).
		Order("full_name ASC").
		Find(&teachers).Error; err != nil {
		return nil, err
	}

	return teachers, nil
}

// ListStudentsByGrade lists students of one class; an empty grade lists all.
func (r *userRepository) ListStudentsByGrade(ctx context.Context, grade string) ([]models.User, error) {
	query := r.db.WithContext(ctx).Where("role = ?", models.RoleStudent)
	if grade != "" {
		query = query.Where("grade = ?", grade)
	}

	var students []models.User
	if err := query.Order("full_name ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *userRepository) ListStudentsByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var students []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", models.RoleStudent).
		Where("id IN ?", ids).
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}
