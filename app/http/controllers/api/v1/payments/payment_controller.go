// Package payments 支付相关控制器
package payments

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/database"
	"doula/pkg/logger"
	"doula/pkg/payment"
	"doula/pkg/payment/reconcile"
	"doula/pkg/response"
)

// PaymentController 支付控制器
type PaymentController struct {
	repo   *repositories.PaymentRepository
	engine *reconcile.Engine
}

// NewPaymentController 创建支付控制器
func NewPaymentController() *PaymentController {
	return &PaymentController{
		repo:   repositories.NewPaymentRepository(),
		engine: reconcile.NewEngine(database.DB),
	}
}

// Store 创建支付
// POST /v1/payments
func (pc *PaymentController) Store(c *gin.Context) {
	request, err := requests.ValidateCreatePayment(c)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	svc, err := newService(payment.Provider(request.Provider), pc.repo)
	if err != nil {
		response.BadRequest(c, err, "不支持的支付提供商")
		return
	}

	req := &payment.Request{
		UserID:        optional(request.UserID),
		ServiceID:     optional(request.ServiceID),
		AppointmentID: optional(request.AppointmentID),
		TrainingID:    optional(request.TrainingID),
		Amount:        request.AmountDecimal(),
		Currency:      request.Currency,
		Provider:      payment.Provider(request.Provider),
		ReturnURL:     request.ReturnURL,
		CancelURL:     request.CancelURL,
		Description:   request.Description,
	}

	result, err := svc.CreatePayment(c.Request.Context(), req)
	if err != nil {
		logger.ErrorString("Payment", "Create", err.Error())
		response.ServerError(c, err, "创建支付失败")
		return
	}

	response.Created(c, result, "支付已创建")
}

// Show 获取支付详情
// GET /v1/payments/:id
func (pc *PaymentController) Show(c *gin.Context) {
	p, err := pc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "支付记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, p)
}

// Index 分页获取支付列表
// GET /v1/payments
func (pc *PaymentController) Index(c *gin.Context) {
	skip, limit := pagination(c)

	payments, total, err := pc.repo.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": payments,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

// Audits 获取支付的完整审计序列
// GET /v1/payments/:id/audits
func (pc *PaymentController) Audits(c *gin.Context) {
	paymentID := c.Param("id")

	// 确认支付存在，区分 404 与空审计
	if _, err := pc.repo.GetByID(c.Request.Context(), paymentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "支付记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	audits, err := pc.repo.ListAudits(c.Request.Context(), paymentID)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"payment_id": paymentID,
		"audits":     audits,
	})
}

// Refund 发起退款
// POST /v1/payments/:id/refund
func (pc *PaymentController) Refund(c *gin.Context) {
	request, amount, err := requests.ValidateRefund(c)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	result, err := pc.engine.Refund(c.Request.Context(), c.Param("id"), amount, optional(request.ChangedBy))
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrNotFound):
			response.Abort404(c, "支付记录不存在")
		case errors.Is(err, reconcile.ErrInvalidState):
			response.Conflict(c, err, "仅已完成的支付可以退款")
		case errors.Is(err, reconcile.ErrInvalidAmount):
			response.BadRequest(c, err, "退款金额超出可退余额")
		default:
			logger.ErrorString("Payment", "Refund", err.Error())
			response.ServerError(c, err, "退款失败")
		}
		return
	}

	response.Data(c, gin.H{
		"payment_id":    result.Payment.ID,
		"status":        result.Payment.Status,
		"refund_amount": result.Payment.RefundAmount,
	})
}

// optional 空字符串转 nil 指针
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// pagination 解析分页参数
func pagination(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return skip, limit
}
