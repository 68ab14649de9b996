package repositories

import (
	"context"

	"doula/app/models/service"
	"doula/pkg/database"

	"gorm.io/gorm"
)

// ServiceRepository 服务项目仓库
type ServiceRepository struct {
	db *gorm.DB
}

// NewServiceRepository 创建仓库实例
func NewServiceRepository() *ServiceRepository {
	return &ServiceRepository{
		db: database.DB,
	}
}

// Create 创建服务项目
func (r *ServiceRepository) Create(ctx context.Context, s *service.Service) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Update 更新服务项目
func (r *ServiceRepository) Update(ctx context.Context, s *service.Service) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// GetByID 根据主键获取服务项目
func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*service.Service, error) {
	var s service.Service
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List 分页获取服务项目
func (r *ServiceRepository) List(ctx context.Context, skip, limit int) ([]service.Service, int64, error) {
	var services []service.Service
	var total int64

	query := r.db.WithContext(ctx).Model(&service.Service{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&services).Error
	return services, total, err
}

// Delete 删除服务项目
func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&service.Service{}).Error
}
