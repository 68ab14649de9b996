// Package types 支付服务的公共类型定义
package types

import (
	"context"
	"errors"

	"doula/app/models/payment"

	"github.com/shopspring/decimal"
)

// Provider 支付提供商类型
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayPal Provider = "paypal"
)

// 提供商通用错误
var (
	// ErrUnsupported 当前提供商不支持该操作
	ErrUnsupported = errors.New("operation not supported by this provider")
	// ErrEventIgnored webhook 事件类型未映射到任何状态，可直接确认并忽略
	ErrEventIgnored = errors.New("webhook event type not handled")
)

// Request 支付请求参数
type Request struct {
	UserID        *string         `json:"user_id"`
	ServiceID     *string         `json:"service_id"`
	AppointmentID *string         `json:"appointment_id"`
	TrainingID    *string         `json:"training_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      Provider        `json:"provider"`
	ReturnURL     string          `json:"return_url"`
	CancelURL     string          `json:"cancel_url"`
	Description   string          `json:"description"`
}

// Result 支付创建结果
type Result struct {
	PaymentID      string `json:"payment_id"`               // 本地支付记录 ID
	CorrelationKey string `json:"correlation_key"`          // 提供商关联键
	ClientSecret   string `json:"client_secret,omitempty"`  // Stripe 专用
	ApprovalURL    string `json:"approval_url,omitempty"`   // PayPal 专用
	Status         string `json:"status"`
}

// WebhookEvent 已验证的提供商事件，对账引擎消费的窄视图
type WebhookEvent struct {
	Provider       Provider        `json:"provider"`
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	CorrelationKey string          `json:"correlation_key"`
	ClaimedStatus  payment.Status  `json:"claimed_status"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	Raw            []byte          `json:"raw"` // 原始载荷，审计行原样保存
}

// Service 支付服务接口
type Service interface {
	// CreatePayment 调用提供商创建支付，并落库一条 pending 支付记录
	CreatePayment(ctx context.Context, req *Request) (*Result, error)
	// VerifyWebhook 验证原始请求体与签名，返回类型化事件
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
	// Capture 确认捕获（PayPal 审批流专用，Stripe 返回 ErrUnsupported）
	Capture(ctx context.Context, correlationKey string) (*WebhookEvent, error)
}

// Repository 支付仓储接口
type Repository interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByStripeIntentID(ctx context.Context, intentID string) (*payment.Payment, error)
	GetByPayPalOrderID(ctx context.Context, orderID string) (*payment.Payment, error)
}
