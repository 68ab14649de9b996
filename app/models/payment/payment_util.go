package payment

import (
	"database/sql/driver"
	"errors"

	"github.com/shopspring/decimal"
)

// Status 支付状态
type Status string

const (
	StatusPending    Status = "pending"    // 待支付
	StatusProcessing Status = "processing" // 提供商已受理
	StatusCompleted  Status = "completed"  // 已完成
	StatusFailed     Status = "failed"     // 支付失败
	StatusCancelled  Status = "cancelled"  // 已取消
	StatusRefunded   Status = "refunded"   // 已退款
	StatusDisputed   Status = "disputed"   // 争议中
)

// Method 支付方式
type Method string

const (
	MethodStripe       Method = "stripe"
	MethodPayPal       Method = "paypal"
	MethodCash         Method = "cash"
	MethodCheck        Method = "check"
	MethodBankTransfer Method = "bank_transfer"
	MethodOther        Method = "other"
)

// JSON 原始 JSON 数据类型，入库出库均不做解析
type JSON []byte

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSON(v)
	default:
		return errors.New("invalid scan source for JSON")
	}
	return nil
}

// Validate 验证支付记录的模型级不变量
func (p *Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if p.RefundAmount.IsNegative() {
		return errors.New("refund_amount cannot be negative")
	}
	if p.RefundAmount.GreaterThan(p.Amount) {
		return errors.New("refund_amount cannot exceed amount")
	}
	if len(p.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	if !p.ValidateMethod() {
		return errors.New("invalid payment method")
	}
	if !p.ValidateStatus() {
		return errors.New("invalid payment status")
	}
	// service/appointment/training 互斥，最多关联一个业务实体
	if err := p.validateAssociation(); err != nil {
		return err
	}
	return nil
}

// validateAssociation 校验业务关联的互斥约束
func (p *Payment) validateAssociation() error {
	count := 0
	if p.ServiceID != nil {
		count++
	}
	if p.AppointmentID != nil {
		count++
	}
	if p.TrainingID != nil {
		count++
	}
	if count > 1 {
		return errors.New("payment can reference at most one of service, appointment, training")
	}
	return nil
}

// ValidateMethod 验证支付方式
func (p *Payment) ValidateMethod() bool {
	switch Method(p.PaymentMethod) {
	case MethodStripe, MethodPayPal, MethodCash, MethodCheck, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

// ValidateStatus 验证支付状态
func (p *Payment) ValidateStatus() bool {
	switch Status(p.Status) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed,
		StatusCancelled, StatusRefunded, StatusDisputed:
		return true
	}
	return false
}

// IsPending 检查是否待支付
func (p *Payment) IsPending() bool {
	return p.Status == string(StatusPending)
}

// IsCompleted 检查支付是否成功
func (p *Payment) IsCompleted() bool {
	return p.Status == string(StatusCompleted)
}

// IsRefunded 检查是否已退款
func (p *Payment) IsRefunded() bool {
	return p.Status == string(StatusRefunded)
}

// IsTerminal 检查是否处于终态
// completed 之后仍允许 refunded/disputed 两个出口
func (p *Payment) IsTerminal() bool {
	switch Status(p.Status) {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded, StatusDisputed:
		return true
	}
	return false
}

// RemainingRefundable 剩余可退金额
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundAmount)
}
