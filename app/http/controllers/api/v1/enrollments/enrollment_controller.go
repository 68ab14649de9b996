// Package enrollments 培训报名控制器
package enrollments

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"
	"gorm.io/gorm"

	"doula/app/models/enrollment"
	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/response"
)

// EnrollmentController 培训报名控制器
type EnrollmentController struct {
	repo *repositories.EnrollmentRepository
}

// NewEnrollmentController 创建培训报名控制器
func NewEnrollmentController() *EnrollmentController {
	return &EnrollmentController{repo: repositories.NewEnrollmentRepository()}
}

// EnrollmentRequest 报名创建/更新请求
type EnrollmentRequest struct {
	UserID           string `json:"user_id" valid:"user_id"`
	TrainingID       string `json:"training_id" valid:"training_id"`
	PaymentStatus    string `json:"payment_status" valid:"payment_status"`
	PassedAssessment *bool  `json:"passed_assessment"`
}

var enrollmentRules = govalidator.MapData{
	"user_id":        []string{"required", "max:36"},
	"training_id":    []string{"required", "max:36"},
	"payment_status": []string{"in:pending,processing,completed,failed,cancelled,refunded,disputed"},
}

var enrollmentMessages = govalidator.MapData{
	"user_id": []string{
		"required:用户 ID 不能为空",
		"max:用户 ID 不能超过 36 个字符",
	},
	"training_id": []string{
		"required:课程 ID 不能为空",
		"max:课程 ID 不能超过 36 个字符",
	},
	"payment_status": []string{
		"in:无效的支付状态",
	},
}

// Store 创建报名记录
// POST /v1/enrollments
func (ec *EnrollmentController) Store(c *gin.Context) {
	req, err := requests.ValidateRequest[EnrollmentRequest](c, enrollmentRules, enrollmentMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	record := &enrollment.Enrollment{
		UserID:           req.UserID,
		TrainingID:       req.TrainingID,
		PaymentStatus:    req.PaymentStatus,
		PassedAssessment: req.PassedAssessment,
	}
	if err := ec.repo.Create(c.Request.Context(), record); err != nil {
		response.ServerError(c, err, "创建报名记录失败")
		return
	}

	response.Created(c, record)
}

// Show 获取报名详情
// GET /v1/enrollments/:id
func (ec *EnrollmentController) Show(c *gin.Context) {
	record, err := ec.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "报名记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, record)
}

// Index 分页获取报名列表，支持按课程过滤
// GET /v1/enrollments
func (ec *EnrollmentController) Index(c *gin.Context) {
	if trainingID := c.Query("training_id"); trainingID != "" {
		items, err := ec.repo.GetByTrainingID(c.Request.Context(), trainingID)
		if err != nil {
			response.ServerError(c, err)
			return
		}
		response.Data(c, gin.H{
			"items": items,
			"total": len(items),
		})
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := ec.repo.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Update 更新报名记录
// PUT /v1/enrollments/:id
func (ec *EnrollmentController) Update(c *gin.Context) {
	record, err := ec.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "报名记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	req, err := requests.ValidateRequest[EnrollmentRequest](c, enrollmentRules, enrollmentMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	record.UserID = req.UserID
	record.TrainingID = req.TrainingID
	if req.PaymentStatus != "" {
		record.PaymentStatus = req.PaymentStatus
	}
	if req.PassedAssessment != nil {
		record.PassedAssessment = req.PassedAssessment
	}

	if err := ec.repo.Update(c.Request.Context(), record); err != nil {
		response.ServerError(c, err, "更新报名记录失败")
		return
	}

	response.Data(c, record)
}

// Delete 删除报名记录
// DELETE /v1/enrollments/:id
func (ec *EnrollmentController) Delete(c *gin.Context) {
	if _, err := ec.repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "报名记录不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	if err := ec.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ServerError(c, err, "删除报名记录失败")
		return
	}

	response.Data(c, gin.H{"deleted": true})
}
