package requests

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	UserID        string `json:"user_id"`
	ServiceID     string `json:"service_id"`
	AppointmentID string `json:"appointment_id"`
	TrainingID    string `json:"training_id"`
	Amount        string `json:"amount" valid:"required"`
	Currency      string `json:"currency" valid:"required"`
	Provider      string `json:"provider" valid:"required"`
	ReturnURL     string `json:"return_url"`
	CancelURL     string `json:"cancel_url"`
	Description   string `json:"description"`
}

// RefundRequest 退款请求
type RefundRequest struct {
	Amount    string `json:"amount" valid:"required"`
	ChangedBy string `json:"changed_by"`
}

// ValidateCreatePayment 验证创建支付请求
func ValidateCreatePayment(c *gin.Context) (*CreatePaymentRequest, error) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	rules := govalidator.MapData{
		"amount":   []string{"required"},
		"currency": []string{"required", "len:3"},
		"provider": []string{"required", "in:stripe,paypal"},
	}

	messages := govalidator.MapData{
		"amount": []string{
			"required:金额不能为空",
		},
		"currency": []string{
			"required:币种不能为空",
			"len:币种必须是 3 位字母代码",
		},
		"provider": []string{
			"required:支付提供商不能为空",
			"in:支付提供商必须是 stripe 或 paypal",
		},
	}

	if err := ValidateStruct(&req, rules, messages); err != nil {
		return nil, err
	}

	// 金额必须是合法的正数
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("无效的金额: %s", req.Amount)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("金额必须大于 0")
	}

	// 支付至多关联一种业务对象
	associations := 0
	for _, id := range []string{req.ServiceID, req.AppointmentID, req.TrainingID} {
		if id != "" {
			associations++
		}
	}
	if associations > 1 {
		return nil, fmt.Errorf("服务、预约、培训只能关联其中一项")
	}

	return &req, nil
}

// AmountDecimal 金额的 decimal 视图，调用前必须通过验证
func (r *CreatePaymentRequest) AmountDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(r.Amount)
	return d
}

// ValidateRefund 验证退款请求
func ValidateRefund(c *gin.Context) (*RefundRequest, decimal.Decimal, error) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, decimal.Zero, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	rules := govalidator.MapData{
		"amount": []string{"required"},
	}
	messages := govalidator.MapData{
		"amount": []string{
			"required:退款金额不能为空",
		},
	}
	if err := ValidateStruct(&req, rules, messages); err != nil {
		return nil, decimal.Zero, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("无效的退款金额: %s", req.Amount)
	}
	if !amount.IsPositive() {
		return nil, decimal.Zero, fmt.Errorf("退款金额必须大于 0")
	}

	return &req, amount, nil
}
