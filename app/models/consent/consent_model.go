// Package consent 用户知情同意书模型
package consent

import (
	"time"

	"doula/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Consent 知情同意书签署记录
type Consent struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Agreement string    `gorm:"type:text" json:"agreement"`
	SignedAt  time.Time `json:"signed_at"`

	models.CommonTimestampsField
}

// TableName 表名
func (Consent) TableName() string {
	return "consents"
}

// BeforeCreate GORM 钩子，生成主键并记录签署时间
func (c *Consent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.SignedAt.IsZero() {
		c.SignedAt = time.Now()
	}
	return nil
}
