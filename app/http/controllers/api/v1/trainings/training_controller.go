// Package trainings 培训课程控制器
package trainings

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
	"gorm.io/gorm"

	"doula/app/models/training"
	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/response"
)

// TrainingController 培训课程控制器
type TrainingController struct {
	repo *repositories.TrainingRepository
}

// NewTrainingController 创建培训课程控制器
func NewTrainingController() *TrainingController {
	return &TrainingController{repo: repositories.NewTrainingRepository()}
}

// TrainingRequest 培训课程创建/更新请求
type TrainingRequest struct {
	Title       string `json:"title" valid:"title"`
	Description string `json:"description"`
	Price       string `json:"price" valid:"price"`
	Currency    string `json:"currency" valid:"currency"`
	StartsAt    string `json:"starts_at"`
	Capacity    int    `json:"capacity"`
}

var trainingRules = govalidator.MapData{
	"title":    []string{"required", "max:100"},
	"price":    []string{"required"},
	"currency": []string{"len:3"},
}

var trainingMessages = govalidator.MapData{
	"title": []string{
		"required:课程标题不能为空",
		"max:课程标题不能超过 100 个字符",
	},
	"price": []string{
		"required:价格不能为空",
	},
	"currency": []string{
		"len:币种必须是 3 位字母代码",
	},
}

// Store 创建培训课程
// POST /v1/trainings
func (tc *TrainingController) Store(c *gin.Context) {
	req, err := requests.ValidateRequest[TrainingRequest](c, trainingRules, trainingMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		response.Abort400(c, "无效的价格")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	t := &training.Training{
		Title:       req.Title,
		Description: req.Description,
		Price:       price,
		Currency:    currency,
		Capacity:    req.Capacity,
	}
	if req.StartsAt != "" {
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			response.Abort400(c, "无效的开始时间")
			return
		}
		t.StartsAt = startsAt
	}

	if err := tc.repo.Create(c.Request.Context(), t); err != nil {
		response.ServerError(c, err, "创建课程失败")
		return
	}

	response.Created(c, t)
}

// Show 获取课程详情
// GET /v1/trainings/:id
func (tc *TrainingController) Show(c *gin.Context) {
	t, err := tc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "课程不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, t)
}

// Index 分页获取课程列表
// GET /v1/trainings
func (tc *TrainingController) Index(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := tc.repo.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Update 更新培训课程
// PUT /v1/trainings/:id
func (tc *TrainingController) Update(c *gin.Context) {
	t, err := tc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "课程不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	req, err := requests.ValidateRequest[TrainingRequest](c, trainingRules, trainingMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		response.Abort400(c, "无效的价格")
		return
	}

	t.Title = req.Title
	t.Description = req.Description
	t.Price = price
	if req.Currency != "" {
		t.Currency = req.Currency
	}
	if req.Capacity > 0 {
		t.Capacity = req.Capacity
	}
	if req.StartsAt != "" {
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			response.Abort400(c, "无效的开始时间")
			return
		}
		t.StartsAt = startsAt
	}

	if err := tc.repo.Update(c.Request.Context(), t); err != nil {
		response.ServerError(c, err, "更新课程失败")
		return
	}

	response.Data(c, t)
}

// Delete 删除培训课程
// DELETE /v1/trainings/:id
func (tc *TrainingController) Delete(c *gin.Context) {
	if _, err := tc.repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "课程不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	if err := tc.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ServerError(c, err, "删除课程失败")
		return
	}

	response.Data(c, gin.H{"deleted": true})
}
