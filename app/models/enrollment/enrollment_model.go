// Package enrollment 培训报名模型
package enrollment

import (
	"time"

	"doula/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment 培训报名记录
// PaymentStatus 跟踪报名费的支付进度，考核结果在通过评估后回填
type Enrollment struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string    `gorm:"type:varchar(36);index" json:"user_id"`
	TrainingID       string    `gorm:"type:varchar(36);index" json:"training_id"`
	PaymentStatus    string    `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	PassedAssessment *bool     `json:"passed_assessment"`
	EnrolledAt       time.Time `json:"enrolled_at"`

	models.CommonTimestampsField
}

// TableName 表名
func (Enrollment) TableName() string {
	return "training_enrollments"
}

// BeforeCreate GORM 钩子，生成主键并记录报名时间
func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now()
	}
	if e.PaymentStatus == "" {
		e.PaymentStatus = "pending"
	}
	return nil
}
