package repositories

import (
	"context"

	"doula/app/models/training"
	"doula/pkg/database"

	"gorm.io/gorm"
)

// TrainingRepository 培训课程仓库
type TrainingRepository struct {
	db *gorm.DB
}

// NewTrainingRepository 创建仓库实例
func NewTrainingRepository() *TrainingRepository {
	return &TrainingRepository{
		db: database.DB,
	}
}

// Create 创建培训课程
func (r *TrainingRepository) Create(ctx context.Context, t *training.Training) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// Update 更新培训课程
func (r *TrainingRepository) Update(ctx context.Context, t *training.Training) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// GetByID 根据主键获取培训课程
func (r *TrainingRepository) GetByID(ctx context.Context, id string) (*training.Training, error) {
	var t training.Training
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List 分页获取培训课程
func (r *TrainingRepository) List(ctx context.Context, skip, limit int) ([]training.Training, int64, error) {
	var trainings []training.Training
	var total int64

	query := r.db.WithContext(ctx).Model(&training.Training{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("starts_at DESC").Offset(skip).Limit(limit).Find(&trainings).Error
	return trainings, total, err
}

// Delete 删除培训课程
func (r *TrainingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&training.Training{}).Error
}
