package payments

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	paymentmodel "doula/app/models/payment"
	"doula/app/repositories"
	"doula/config"
	"doula/pkg/database"
	"doula/pkg/logger"
	"doula/pkg/payment"
	"doula/pkg/payment/reconcile"
	"doula/pkg/queue"
	"doula/pkg/response"
)

// WebhookController 提供商回调控制器
// 验证签名后把事件入队立即确认，对账由工作器异步完成
type WebhookController struct {
	repo         *repositories.PaymentRepository
	engine       *reconcile.Engine
	queueService *queue.QueueService
}

// NewWebhookController 创建回调控制器
func NewWebhookController(qs *queue.QueueService) *WebhookController {
	return &WebhookController{
		repo:         repositories.NewPaymentRepository(),
		engine:       reconcile.NewEngine(database.DB),
		queueService: qs,
	}
}

// StripeWebhook 接收 Stripe 事件回调
// POST /v1/payments/stripe/webhook
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	wc.handleWebhook(c, payment.ProviderStripe,
		c.GetHeader("Stripe-Signature"), paymentmodel.ReasonStripeWebhook)
}

// PayPalWebhook 接收 PayPal 事件回调
// POST /v1/payments/paypal/webhook
func (wc *WebhookController) PayPalWebhook(c *gin.Context) {
	wc.handleWebhook(c, payment.ProviderPayPal, "", paymentmodel.ReasonPayPalWebhook)
}

// handleWebhook 通用回调处理
func (wc *WebhookController) handleWebhook(c *gin.Context, provider payment.Provider, signature, reason string) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Abort400(c, "读取请求体失败")
		return
	}

	svc, err := newService(provider, wc.repo)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	event, err := svc.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrEventIgnored) {
			// 未映射的事件类型直接确认，提供商不会重发
			response.Data(c, gin.H{"received": true, "handled": false})
			return
		}
		logger.WarnString("Webhook", string(provider), err.Error())
		response.BadRequest(c, err, "事件验证失败")
		return
	}

	wc.dispatch(c, event, reason)
}

// PayPalCapture 买家审批回跳后的捕获确认
// POST /v1/payments/paypal/:order_id/capture
//
// 捕获结果同步应用，调用方立刻拿到最终状态
func (wc *WebhookController) PayPalCapture(c *gin.Context) {
	orderID := c.Param("order_id")
	if orderID == "" {
		response.Abort400(c, "缺少订单 ID")
		return
	}

	svc, err := newService(payment.ProviderPayPal, wc.repo)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	event, err := svc.Capture(c.Request.Context(), orderID)
	if err != nil {
		logger.ErrorString("Webhook", "PayPalCapture", err.Error())
		response.ServerError(c, err, "捕获订单失败")
		return
	}

	result, err := wc.engine.ApplyEvent(c.Request.Context(), reconcile.Event{
		Provider:       paymentmodel.MethodPayPal,
		CorrelationKey: event.CorrelationKey,
		ClaimedStatus:  event.ClaimedStatus,
		RefundAmount:   event.RefundAmount,
		Reason:         paymentmodel.ReasonPayPalCapture,
		Payload:        paymentmodel.JSON(event.Raw),
	})
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrNotFound):
			response.Abort404(c, "支付记录不存在")
		case errors.Is(err, reconcile.ErrInvalidTransition):
			response.Conflict(c, err)
		default:
			response.ServerError(c, err, "应用捕获结果失败")
		}
		return
	}

	response.Data(c, gin.H{
		"payment_id": result.Payment.ID,
		"status":     result.Payment.Status,
		"duplicate":  result.Duplicate,
	})
}

// dispatch 事件入队，队列不可用时降级为同步应用
func (wc *WebhookController) dispatch(c *gin.Context, event *payment.WebhookEvent, reason string) {
	task := &queue.ProviderEventTask{
		ID:             uuid.NewString(),
		Provider:       string(providerMethod(event.Provider)),
		EventType:      event.EventType,
		CorrelationKey: event.CorrelationKey,
		ClaimedStatus:  string(event.ClaimedStatus),
		RefundAmount:   event.RefundAmount.String(),
		Reason:         reason,
		Payload:        event.Raw,
	}

	if wc.queueService != nil {
		if err := wc.queueService.PushTask(c.Request.Context(), task); err == nil {
			response.Data(c, gin.H{"received": true, "task_id": task.ID})
			return
		}
		logger.WarnString("Webhook", "Enqueue", "事件入队失败，降级为同步处理")
	}

	_, err := wc.engine.ApplyEvent(c.Request.Context(), reconcile.Event{
		Provider:       providerMethod(event.Provider),
		CorrelationKey: event.CorrelationKey,
		ClaimedStatus:  event.ClaimedStatus,
		RefundAmount:   event.RefundAmount,
		Reason:         reason,
		Payload:        paymentmodel.JSON(event.Raw),
	})
	if err != nil && !reconcile.IsBusinessError(err) {
		response.ServerError(c, err, "事件处理失败")
		return
	}

	// 业务拒绝也回 200，提供商重发不会改变结果
	response.Data(c, gin.H{"received": true})
}

// newService 按提供商构建支付服务
func newService(provider payment.Provider, repo payment.Repository) (payment.Service, error) {
	switch provider {
	case payment.ProviderStripe:
		return payment.NewService(provider, repo, config.LoadStripeConfig())
	case payment.ProviderPayPal:
		return payment.NewService(provider, repo, config.LoadPayPalConfig())
	default:
		return nil, payment.ErrUnsupported
	}
}

// providerMethod 提供商到支付方式的映射
func providerMethod(provider payment.Provider) paymentmodel.Method {
	if provider == payment.ProviderPayPal {
		return paymentmodel.MethodPayPal
	}
	return paymentmodel.MethodStripe
}
