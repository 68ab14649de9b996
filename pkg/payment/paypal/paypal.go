// Package paypal PayPal 支付服务
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	paypalsdk "github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"doula/app/models/payment"
	"doula/config"
	"doula/pkg/payment/types"
	"doula/pkg/payment/utils"
)

// PayPalService PayPal 支付服务
type PayPalService struct {
	client     *paypalsdk.Client
	returnURL  string
	cancelURL  string
	repository types.Repository
}

// NewPayPalService 创建 PayPal 支付服务
func NewPayPalService(cfg config.PayPalConfig, repo types.Repository) (*PayPalService, error) {
	apiBase := paypalsdk.APIBaseSandBox
	if cfg.Mode == "live" {
		apiBase = paypalsdk.APIBaseLive
	}

	client, err := paypalsdk.NewClient(cfg.ClientID, cfg.ClientSecret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("create paypal client error: %w", err)
	}

	return &PayPalService{
		client:     client,
		returnURL:  cfg.ReturnURL,
		cancelURL:  cfg.CancelURL,
		repository: repo,
	}, nil
}

// CreatePayment 创建 PayPal 订单，并落库 pending 支付记录
func (s *PayPalService) CreatePayment(ctx context.Context, req *types.Request) (*types.Result, error) {
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.returnURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cancelURL
	}
	if returnURL == "" || cancelURL == "" {
		return nil, fmt.Errorf("paypal payments require return_url and cancel_url")
	}

	units := []paypalsdk.PurchaseUnitRequest{
		{
			ReferenceID: utils.GenerateReferenceID(),
			Description: req.Description,
			Amount: &paypalsdk.PurchaseUnitAmount{
				Currency: strings.ToUpper(req.Currency),
				Value:    req.Amount.StringFixed(2),
			},
		},
	}

	order, err := s.client.CreateOrder(ctx, paypalsdk.OrderIntentCapture, units, nil,
		&paypalsdk.ApplicationContext{
			ReturnURL: returnURL,
			CancelURL: cancelURL,
		})
	if err != nil {
		return nil, fmt.Errorf("create paypal order error: %w", err)
	}

	// 找到买家审批链接
	approvalURL := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	if approvalURL == "" {
		return nil, fmt.Errorf("paypal approval url not found in order %s", order.ID)
	}

	p := &payment.Payment{
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		PaymentMethod: string(payment.MethodPayPal),
		Status:        string(payment.StatusPending),
		ServiceID:     req.ServiceID,
		AppointmentID: req.AppointmentID,
		TrainingID:    req.TrainingID,
		PayPalOrderID: &order.ID,
	}
	if err := s.repository.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment record error: %w", err)
	}

	return &types.Result{
		PaymentID:      p.ID,
		CorrelationKey: order.ID,
		ApprovalURL:    approvalURL,
		Status:         order.Status,
	}, nil
}

// Capture 买家审批后捕获订单
func (s *PayPalService) Capture(ctx context.Context, correlationKey string) (*types.WebhookEvent, error) {
	resp, err := s.client.CaptureOrder(ctx, correlationKey, paypalsdk.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("capture paypal order error: %w", err)
	}

	status := payment.StatusCompleted
	if resp.Status != "COMPLETED" {
		status = payment.StatusFailed
	}

	raw, _ := json.Marshal(resp)
	return &types.WebhookEvent{
		Provider:       types.ProviderPayPal,
		EventType:      "order.capture",
		CorrelationKey: correlationKey,
		ClaimedStatus:  status,
		Raw:            raw,
	}, nil
}

// VerifyWebhook 解析 PayPal webhook 事件并映射为类型化事件
// 签名验证由边缘层/提供商回调配置保证，这里沿用订单号与事件类型做对账
func (s *PayPalService) VerifyWebhook(payload []byte, signature string) (*types.WebhookEvent, error) {
	var event struct {
		ID        string                 `json:"id"`
		EventType string                 `json:"event_type"`
		Resource  map[string]interface{} `json:"resource"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("parse paypal webhook payload error: %w", err)
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("paypal webhook missing event_type")
	}

	status, ok := MapEventStatus(event.EventType)
	if !ok {
		return nil, types.ErrEventIgnored
	}

	key := correlationKeyFromResource(event.Resource)
	if key == "" {
		return nil, fmt.Errorf("paypal event %s missing order reference", event.ID)
	}

	return &types.WebhookEvent{
		Provider:       types.ProviderPayPal,
		EventID:        event.ID,
		EventType:      event.EventType,
		CorrelationKey: key,
		ClaimedStatus:  status,
		RefundAmount:   refundAmountFromResource(event.Resource),
		Raw:            payload,
	}, nil
}

// MapEventStatus 将 PayPal 事件类型映射为支付状态
func MapEventStatus(eventType string) (payment.Status, bool) {
	switch eventType {
	case "CHECKOUT.ORDER.APPROVED":
		return payment.StatusProcessing, true
	case "PAYMENT.CAPTURE.COMPLETED":
		return payment.StatusCompleted, true
	case "PAYMENT.CAPTURE.DENIED":
		return payment.StatusFailed, true
	case "PAYMENT.CAPTURE.REFUNDED":
		return payment.StatusRefunded, true
	case "CUSTOMER.DISPUTE.CREATED":
		return payment.StatusDisputed, true
	}
	return "", false
}

// correlationKeyFromResource 从事件资源中取出订单号
// capture 类事件的订单号位于 supplementary_data.related_ids.order_id
func correlationKeyFromResource(resource map[string]interface{}) string {
	if resource == nil {
		return ""
	}
	if sup, ok := resource["supplementary_data"].(map[string]interface{}); ok {
		if ids, ok := sup["related_ids"].(map[string]interface{}); ok {
			if orderID, ok := ids["order_id"].(string); ok && orderID != "" {
				return orderID
			}
		}
	}
	if id, ok := resource["id"].(string); ok {
		return id
	}
	return ""
}

// refundAmountFromResource 取出退款事件的金额，缺失时返回零值（按全额处理）
func refundAmountFromResource(resource map[string]interface{}) decimal.Decimal {
	if resource == nil {
		return decimal.Zero
	}
	if amount, ok := resource["amount"].(map[string]interface{}); ok {
		if value, ok := amount["value"].(string); ok {
			if d, err := decimal.NewFromString(value); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}
