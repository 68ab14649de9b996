package repositories

import (
	"context"

	"doula/app/models/appointment"
	"doula/pkg/database"

	"gorm.io/gorm"
)

// AppointmentRepository 预约仓库
type AppointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository 创建仓库实例
func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{
		db: database.DB,
	}
}

// Create 创建预约
func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// Update 更新预约
func (r *AppointmentRepository) Update(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// GetByID 根据主键获取预约
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByUserID 获取用户的预约记录
func (r *AppointmentRepository) GetByUserID(ctx context.Context, userID string, skip, limit int) ([]appointment.Appointment, int64, error) {
	var appointments []appointment.Appointment
	var total int64

	query := r.db.WithContext(ctx).Model(&appointment.Appointment{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("starts_at DESC").Offset(skip).Limit(limit).Find(&appointments).Error
	return appointments, total, err
}

// List 分页获取预约
func (r *AppointmentRepository) List(ctx context.Context, skip, limit int) ([]appointment.Appointment, int64, error) {
	var appointments []appointment.Appointment
	var total int64

	query := r.db.WithContext(ctx).Model(&appointment.Appointment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("starts_at DESC").Offset(skip).Limit(limit).Find(&appointments).Error
	return appointments, total, err
}

// Delete 删除预约
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&appointment.Appointment{}).Error
}
