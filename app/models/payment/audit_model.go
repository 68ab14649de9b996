package payment

import (
	"time"
)

// 审计行的 change_reason 取值
const (
	ReasonDuplicateEvent = "duplicate_event" // 重复投递的事件，未变更状态
	ReasonStripeWebhook  = "stripe_webhook"  // Stripe webhook 触发的状态变更
	ReasonPayPalWebhook  = "paypal_webhook"  // PayPal webhook 触发的状态变更
	ReasonPayPalCapture  = "paypal_capture"  // PayPal 捕获调用触发的状态变更
	ReasonRefund         = "refund"          // 全额退款
	ReasonPartialRefund  = "partial_refund"  // 部分退款，状态保持 completed
)

// Audit 支付状态变更审计行，只追加，不更新不删除
// 按创建时间排序即可完整重放一条支付记录的全部状态变迁
type Audit struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID string `gorm:"type:varchar(36);index;not null" json:"payment_id"`

	OldStatus    string `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus    string `gorm:"type:varchar(20)" json:"new_status"`
	ChangeReason string `gorm:"type:varchar(100)" json:"change_reason"`

	// 提供商事件的原始载荷，原样保存
	ProviderData JSON `gorm:"type:json" json:"provider_data"`

	// 操作者，系统或 webhook 触发的变更为 null
	ChangedBy *string `gorm:"type:varchar(36)" json:"changed_by"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Audit) TableName() string {
	return "payment_audits"
}
