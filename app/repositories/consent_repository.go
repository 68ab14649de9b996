package repositories

import (
	"context"

	"doula/app/models/consent"
	"doula/pkg/database"

	"gorm.io/gorm"
)

// ConsentRepository 知情同意书仓库
type ConsentRepository struct {
	db *gorm.DB
}

// NewConsentRepository 创建仓库实例
func NewConsentRepository() *ConsentRepository {
	return &ConsentRepository{
		db: database.DB,
	}
}

// NewConsentRepositoryWithDB 使用指定数据库连接创建仓库实例，测试时使用
func NewConsentRepositoryWithDB(db *gorm.DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// Create 创建签署记录
func (r *ConsentRepository) Create(ctx context.Context, c *consent.Consent) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Update 更新签署记录
func (r *ConsentRepository) Update(ctx context.Context, c *consent.Consent) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// GetByID 根据主键获取签署记录
func (r *ConsentRepository) GetByID(ctx context.Context, id string) (*consent.Consent, error) {
	var c consent.Consent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List 分页获取签署记录
func (r *ConsentRepository) List(ctx context.Context, skip, limit int) ([]consent.Consent, int64, error) {
	var consents []consent.Consent
	var total int64

	query := r.db.WithContext(ctx).Model(&consent.Consent{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("signed_at DESC").Offset(skip).Limit(limit).Find(&consents).Error
	return consents, total, err
}

// Delete 删除签署记录
func (r *ConsentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&consent.Consent{}).Error
}
