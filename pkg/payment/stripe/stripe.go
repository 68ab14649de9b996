// Package stripe Stripe 支付服务
package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	stripesdk "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"doula/app/models/payment"
	"doula/config"
	"doula/pkg/payment/types"
	"doula/pkg/payment/utils"
)

// StripeService Stripe 支付服务
type StripeService struct {
	client        *client.API
	webhookSecret string
	repository    types.Repository
}

// NewStripeService 创建 Stripe 支付服务
func NewStripeService(cfg config.StripeConfig, repo types.Repository) (*StripeService, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is not configured")
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)

	return &StripeService{
		client:        sc,
		webhookSecret: cfg.WebhookSecret,
		repository:    repo,
	}, nil
}

// CreatePayment 创建 Stripe payment intent，并落库 pending 支付记录
func (s *StripeService) CreatePayment(ctx context.Context, req *types.Request) (*types.Result, error) {
	// Stripe 以最小货币单位计价
	amountCents := req.Amount.Mul(decimalHundred).IntPart()

	params := &stripesdk.PaymentIntentParams{
		Amount:   stripesdk.Int64(amountCents),
		Currency: stripesdk.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripesdk.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripesdk.Bool(true),
		},
		Description: stripesdk.String(req.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(utils.GenerateIdempotencyKey())

	if req.UserID != nil {
		params.AddMetadata("user_id", *req.UserID)
	}
	if req.ServiceID != nil {
		params.AddMetadata("service_id", *req.ServiceID)
	}
	if req.AppointmentID != nil {
		params.AddMetadata("appointment_id", *req.AppointmentID)
	}
	if req.TrainingID != nil {
		params.AddMetadata("training_id", *req.TrainingID)
	}

	intent, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe payment intent error: %w", err)
	}

	p := &payment.Payment{
		UserID:                req.UserID,
		Amount:                req.Amount,
		Currency:              strings.ToUpper(req.Currency),
		PaymentMethod:         string(payment.MethodStripe),
		Status:                string(payment.StatusPending),
		ServiceID:             req.ServiceID,
		AppointmentID:         req.AppointmentID,
		TrainingID:            req.TrainingID,
		StripePaymentIntentID: &intent.ID,
	}
	if err := s.repository.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment record error: %w", err)
	}

	return &types.Result{
		PaymentID:      p.ID,
		CorrelationKey: intent.ID,
		ClientSecret:   intent.ClientSecret,
		Status:         string(intent.Status),
	}, nil
}

// VerifyWebhook 验证 Stripe webhook 签名并映射为类型化事件
func (s *StripeService) VerifyWebhook(payload []byte, signature string) (*types.WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is not configured")
	}

	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify stripe webhook signature error: %w", err)
	}

	status, ok := MapEventStatus(string(event.Type))
	if !ok {
		return nil, types.ErrEventIgnored
	}

	key := correlationKeyFromEvent(string(event.Type), event.Data.Object)
	if key == "" {
		return nil, fmt.Errorf("stripe event %s missing payment intent reference", event.ID)
	}

	refund := decimal.Zero
	if status == payment.StatusRefunded {
		refund = refundAmountFromEvent(event.Data.Object)
	}

	return &types.WebhookEvent{
		Provider:       types.ProviderStripe,
		EventID:        event.ID,
		EventType:      string(event.Type),
		CorrelationKey: key,
		ClaimedStatus:  status,
		RefundAmount:   refund,
		Raw:            payload,
	}, nil
}

// Capture Stripe 走 payment intent 确认流程，无独立捕获操作
func (s *StripeService) Capture(ctx context.Context, correlationKey string) (*types.WebhookEvent, error) {
	return nil, types.ErrUnsupported
}

// MapEventStatus 将 Stripe 事件类型映射为支付状态
func MapEventStatus(eventType string) (payment.Status, bool) {
	switch eventType {
	case "payment_intent.processing":
		return payment.StatusProcessing, true
	case "payment_intent.succeeded":
		return payment.StatusCompleted, true
	case "payment_intent.payment_failed":
		return payment.StatusFailed, true
	case "payment_intent.canceled":
		return payment.StatusCancelled, true
	case "charge.refunded":
		return payment.StatusRefunded, true
	case "charge.dispute.created":
		return payment.StatusDisputed, true
	}
	return "", false
}

// correlationKeyFromEvent 从事件对象中取出 payment intent ID
// payment_intent.* 事件对象本身就是 intent，charge.* 事件引用 payment_intent 字段
func correlationKeyFromEvent(eventType string, object map[string]interface{}) string {
	if object == nil {
		return ""
	}
	if field, ok := object["payment_intent"].(string); ok && field != "" {
		return field
	}
	if id, ok := object["id"].(string); ok && strings.HasPrefix(eventType, "payment_intent") {
		return id
	}
	return ""
}

// refundAmountFromEvent 从 charge.refunded 事件对象提取本次退款金额
// refunds.data 按时间倒序排列，第一条是触发本次事件的退款；列表缺失时
// 回退到 amount_refunded 累计值。Stripe 以最小货币单位计价，需除以 100
func refundAmountFromEvent(object map[string]interface{}) decimal.Decimal {
	if object == nil {
		return decimal.Zero
	}

	if refunds, ok := object["refunds"].(map[string]interface{}); ok {
		if data, ok := refunds["data"].([]interface{}); ok && len(data) > 0 {
			if entry, ok := data[0].(map[string]interface{}); ok {
				if cents, ok := entry["amount"].(float64); ok && cents > 0 {
					return decimal.NewFromFloat(cents).Div(decimalHundred)
				}
			}
		}
	}

	if cents, ok := object["amount_refunded"].(float64); ok && cents > 0 {
		return decimal.NewFromFloat(cents).Div(decimalHundred)
	}
	return decimal.Zero
}

var decimalHundred = decimal.NewFromInt(100)
