// Package consents 知情同意书控制器
package consents

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"
	"gorm.io/gorm"

	"doula/app/models/consent"
	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/response"
)

// ConsentController 知情同意书控制器
type ConsentController struct {
	repo *repositories.ConsentRepository
}

// NewConsentController 创建知情同意书控制器
func NewConsentController() *ConsentController {
	return &ConsentController{repo: repositories.NewConsentRepository()}
}

// ConsentRequest 签署请求
type ConsentRequest struct {
	UserID    string `json:"user_id" valid:"user_id"`
	Agreement string `json:"agreement" valid:"agreement"`
}

var consentRules = govalidator.MapData{
	"user_id":   []string{"required", "max:36"},
	"agreement": []string{"required"},
}

var consentMessages = govalidator.MapData{
	"user_id": []string{
		"required:用户 ID 不能为空",
		"max:用户 ID 不能超过 36 个字符",
	},
	"agreement": []string{
		"required:协议内容不能为空",
	},
}

// Store 创建签署记录
// POST /v1/consents
func (cc *ConsentController) Store(c *gin.Context) {
	req, err := requests.ValidateRequest[ConsentRequest](c, consentRules, consentMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	record := &consent.Consent{
		UserID:    req.UserID,
		Agreement: req.Agreement,
	}
	if err := cc.repo.Create(c.Request.Context(), record); err != nil {
		response.ServerError(c, err, "创建签署记录失败")
		return
	}

	response.Created(c, record)
}

// Show 获取签署记录详情
// GET /v1/consents/:id
func (cc *ConsentController) Show(c *gin.Context) {
	record, err := cc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "签署记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, record)
}

// Index 分页获取签署记录列表
// GET /v1/consents
func (cc *ConsentController) Index(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := cc.repo.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Update 更新签署内容，签署人不可变更
// PUT /v1/consents/:id
func (cc *ConsentController) Update(c *gin.Context) {
	record, err := cc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "签署记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	req, err := requests.ValidateRequest[ConsentUpdateRequest](c, consentUpdateRules, consentUpdateMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	record.Agreement = req.Agreement
	if err := cc.repo.Update(c.Request.Context(), record); err != nil {
		response.ServerError(c, err, "更新签署记录失败")
		return
	}

	response.Data(c, record)
}

// ConsentUpdateRequest 更新请求，只允许修改协议内容
type ConsentUpdateRequest struct {
	Agreement string `json:"agreement" valid:"agreement"`
}

var consentUpdateRules = govalidator.MapData{
	"agreement": []string{"required"},
}

var consentUpdateMessages = govalidator.MapData{
	"agreement": []string{
		"required:协议内容不能为空",
	},
}

// Delete 删除签署记录
// DELETE /v1/consents/:id
func (cc *ConsentController) Delete(c *gin.Context) {
	if _, err := cc.repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "签署记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	if err := cc.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ServerError(c, err, "删除签署记录失败")
		return
	}

	response.Data(c, gin.H{"deleted": true})
}
