package repositories

import (
	"context"

	"doula/app/models/enrollment"
	"doula/pkg/database"

	"gorm.io/gorm"
)

// EnrollmentRepository 培训报名仓库
type EnrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository 创建仓库实例
func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{
		db: database.DB,
	}
}

// NewEnrollmentRepositoryWithDB 使用指定数据库连接创建仓库实例，测试时使用
func NewEnrollmentRepositoryWithDB(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create 创建报名记录
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// Update 更新报名记录
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// GetByID 根据主键获取报名记录
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByTrainingID 获取某个课程的全部报名记录
func (r *EnrollmentRepository) GetByTrainingID(ctx context.Context, trainingID string) ([]enrollment.Enrollment, error) {
	var enrollments []enrollment.Enrollment
	err := r.db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

// List 分页获取报名记录
func (r *EnrollmentRepository) List(ctx context.Context, skip, limit int) ([]enrollment.Enrollment, int64, error) {
	var enrollments []enrollment.Enrollment
	var total int64

	query := r.db.WithContext(ctx).Model(&enrollment.Enrollment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("enrolled_at DESC").Offset(skip).Limit(limit).Find(&enrollments).Error
	return enrollments, total, err
}

// Delete 删除报名记录
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&enrollment.Enrollment{}).Error
}
