// Package payment 支付记录模型
package payment

import (
	"doula/app/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment 支付记录模型，一行对应一次支付尝试
type Payment struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       *string         `gorm:"type:varchar(36);index" json:"user_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Currency     string          `gorm:"type:varchar(3)" json:"currency"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"refund_amount"`

	// 支付方式与当前状态
	PaymentMethod string `gorm:"type:varchar(20);index" json:"payment_method"`
	Status        string `gorm:"type:varchar(20);index" json:"status"`

	// 业务关联，三者最多只允许一个非空
	ServiceID     *string `gorm:"type:varchar(36);index" json:"service_id"`
	AppointmentID *string `gorm:"type:varchar(36);index" json:"appointment_id"`
	TrainingID    *string `gorm:"type:varchar(36);index" json:"training_id"`

	// 支付提供商关联键，非空时全局唯一
	StripePaymentIntentID *string `gorm:"type:varchar(64);uniqueIndex" json:"stripe_payment_intent_id"`
	// 默认命名策略会把 PayPal 拆成 pay_pal，列名必须与关联键查询一致
	PayPalOrderID *string `gorm:"column:paypal_order_id;type:varchar(64);uniqueIndex" json:"paypal_order_id"`

	// 提供商返回的原始数据，原样保存
	Metadata JSON `gorm:"type:json" json:"metadata"`

	models.CommonTimestampsField
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate GORM 钩子，生成主键
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave GORM 钩子，入库前校验模型不变量
func (p *Payment) BeforeSave(tx *gorm.DB) error {
	return p.Validate()
}
