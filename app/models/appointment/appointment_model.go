// Package appointment 预约模型
package appointment

import (
	"time"

	"doula/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status 预约状态
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment 预约记录
type Appointment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	ServiceID *string   `gorm:"type:varchar(36);index" json:"service_id"`
	StartsAt  time.Time `gorm:"index" json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `gorm:"type:varchar(20);default:'scheduled';index" json:"status"`
	Notes     string    `gorm:"type:text" json:"notes"`

	models.CommonTimestampsField
}

// TableName 表名
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate GORM 钩子，生成主键
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
