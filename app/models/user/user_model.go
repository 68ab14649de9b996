// Package user 存放用户 Model 相关逻辑
package user

import (
	"doula/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 用户模型
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email     string `gorm:"unique;type:varchar(255)" json:"email"`
	FirstName string `gorm:"type:varchar(50)" json:"first_name"`
	LastName  string `gorm:"type:varchar(50)" json:"last_name"`
	Phone     string `gorm:"type:varchar(20)" json:"phone"`
	Role      string `gorm:"type:varchar(20);default:'client';index" json:"role"` // client, doula, admin

	models.CommonTimestampsField
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate GORM 钩子，生成主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
