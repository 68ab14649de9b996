// Package training 培训课程模型
package training

import (
	"time"

	"doula/app/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Training 培训课程
type Training struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string          `gorm:"type:varchar(100)" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Currency    string          `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	StartsAt    time.Time       `gorm:"index" json:"starts_at"`
	Capacity    int             `gorm:"default:0" json:"capacity"`

	models.CommonTimestampsField
}

// TableName 表名
func (Training) TableName() string {
	return "trainings"
}

// BeforeCreate GORM 钩子，生成主键
func (t *Training) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
