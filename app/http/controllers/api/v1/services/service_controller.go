// Package services 服务项目控制器
package services

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
	"gorm.io/gorm"

	"doula/app/models/service"
	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/response"
)

// ServiceController 服务项目控制器
type ServiceController struct {
	repo *repositories.ServiceRepository
}

// NewServiceController 创建服务项目控制器
func NewServiceController() *ServiceController {
	return &ServiceController{repo: repositories.NewServiceRepository()}
}

// ServiceRequest 服务项目创建/更新请求
type ServiceRequest struct {
	Name        string `json:"name" valid:"name"`
	Description string `json:"description"`
	Price       string `json:"price" valid:"price"`
	Currency    string `json:"currency" valid:"currency"`
	DurationMin int    `json:"duration_min"`
	Active      *bool  `json:"active"`
}

var serviceRules = govalidator.MapData{
	"name":     []string{"required", "max:100"},
	"price":    []string{"required"},
	"currency": []string{"len:3"},
}

var serviceMessages = govalidator.MapData{
	"name": []string{
		"required:服务名称不能为空",
		"max:服务名称不能超过 100 个字符",
	},
	"price": []string{
		"required:价格不能为空",
	},
	"currency": []string{
		"len:币种必须是 3 位字母代码",
	},
}

// parsePrice 解析并校验价格
func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("无效的价格: " + raw)
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("价格不能为负数")
	}
	return price, nil
}

// Store 创建服务项目
// POST /v1/services
func (sc *ServiceController) Store(c *gin.Context) {
	req, err := requests.ValidateRequest[ServiceRequest](c, serviceRules, serviceMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	durationMin := req.DurationMin
	if durationMin <= 0 {
		durationMin = 60
	}

	s := &service.Service{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Currency:    currency,
		DurationMin: durationMin,
		Active:      true,
	}
	if req.Active != nil {
		s.Active = *req.Active
	}

	if err := sc.repo.Create(c.Request.Context(), s); err != nil {
		response.ServerError(c, err, "创建服务失败")
		return
	}

	response.Created(c, s)
}

// Show 获取服务详情
// GET /v1/services/:id
func (sc *ServiceController) Show(c *gin.Context) {
	s, err := sc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "服务不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, s)
}

// Index 分页获取服务列表
// GET /v1/services
func (sc *ServiceController) Index(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := sc.repo.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Update 更新服务项目
// PUT /v1/services/:id
func (sc *ServiceController) Update(c *gin.Context) {
	s, err := sc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "服务不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	req, err := requests.ValidateRequest[ServiceRequest](c, serviceRules, serviceMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	s.Name = req.Name
	s.Description = req.Description
	s.Price = price
	if req.Currency != "" {
		s.Currency = req.Currency
	}
	if req.DurationMin > 0 {
		s.DurationMin = req.DurationMin
	}
	if req.Active != nil {
		s.Active = *req.Active
	}

	if err := sc.repo.Update(c.Request.Context(), s); err != nil {
		response.ServerError(c, err, "更新服务失败")
		return
	}

	response.Data(c, s)
}

// Delete 删除服务项目
// DELETE /v1/services/:id
func (sc *ServiceController) Delete(c *gin.Context) {
	if _, err := sc.repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "服务不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	if err := sc.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ServerError(c, err, "删除服务失败")
		return
	}

	response.Data(c, gin.H{"deleted": true})
}
