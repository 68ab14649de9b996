// Package service 陪护服务项目模型
package service

import (
	"doula/app/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service 可预约的服务项目
type Service struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string          `gorm:"type:varchar(100)" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Currency    string          `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	DurationMin int             `gorm:"default:60" json:"duration_min"`
	Active      bool            `gorm:"default:true;index" json:"active"`

	models.CommonTimestampsField
}

// TableName 表名
func (Service) TableName() string {
	return "services"
}

// BeforeCreate GORM 钩子，生成主键
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
