// Package appointments 预约控制器
package appointments

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"
	"gorm.io/gorm"

	"doula/app/models/appointment"
	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/response"
)

// AppointmentController 预约控制器
type AppointmentController struct {
	repo *repositories.AppointmentRepository
}

// NewAppointmentController 创建预约控制器
func NewAppointmentController() *AppointmentController {
	return &AppointmentController{repo: repositories.NewAppointmentRepository()}
}

// AppointmentRequest 预约创建/更新请求
type AppointmentRequest struct {
	UserID    string `json:"user_id" valid:"user_id"`
	ServiceID string `json:"service_id"`
	StartsAt  string `json:"starts_at" valid:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Status    string `json:"status" valid:"status"`
	Notes     string `json:"notes"`
}

var appointmentRules = govalidator.MapData{
	"user_id":   []string{"required"},
	"starts_at": []string{"required"},
	"status":    []string{"in:scheduled,confirmed,completed,cancelled"},
}

var appointmentMessages = govalidator.MapData{
	"user_id": []string{
		"required:用户 ID 不能为空",
	},
	"starts_at": []string{
		"required:开始时间不能为空",
	},
	"status": []string{
		"in:状态必须是 scheduled、confirmed、completed 或 cancelled",
	},
}

// parseTimes 解析开始/结束时间，RFC3339 格式
func parseTimes(startsAt, endsAt string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("无效的开始时间: " + startsAt)
	}

	end := start.Add(time.Hour)
	if endsAt != "" {
		end, err = time.Parse(time.RFC3339, endsAt)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("无效的结束时间: " + endsAt)
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, errors.New("结束时间必须晚于开始时间")
		}
	}
	return start, end, nil
}

// Store 创建预约
// POST /v1/appointments
func (ac *AppointmentController) Store(c *gin.Context) {
	req, err := requests.ValidateRequest[AppointmentRequest](c, appointmentRules, appointmentMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	start, end, err := parseTimes(req.StartsAt, req.EndsAt)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	status := req.Status
	if status == "" {
		status = string(appointment.StatusScheduled)
	}

	a := &appointment.Appointment{
		UserID:   req.UserID,
		StartsAt: start,
		EndsAt:   end,
		Status:   status,
		Notes:    req.Notes,
	}
	if req.ServiceID != "" {
		a.ServiceID = &req.ServiceID
	}

	if err := ac.repo.Create(c.Request.Context(), a); err != nil {
		response.ServerError(c, err, "创建预约失败")
		return
	}

	response.Created(c, a)
}

// Show 获取预约详情
// GET /v1/appointments/:id
func (ac *AppointmentController) Show(c *gin.Context) {
	a, err := ac.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "预约不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, a)
}

// Index 分页获取预约列表，支持按用户过滤
// GET /v1/appointments?user_id=xxx
func (ac *AppointmentController) Index(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var (
		items []appointment.Appointment
		total int64
		err   error
	)

	if userID := c.Query("user_id"); userID != "" {
		items, total, err = ac.repo.GetByUserID(c.Request.Context(), userID, skip, limit)
	} else {
		items, total, err = ac.repo.List(c.Request.Context(), skip, limit)
	}
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Update 更新预约
// PUT /v1/appointments/:id
func (ac *AppointmentController) Update(c *gin.Context) {
	a, err := ac.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "预约不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	req, err := requests.ValidateRequest[AppointmentRequest](c, appointmentRules, appointmentMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	start, end, err := parseTimes(req.StartsAt, req.EndsAt)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	a.UserID = req.UserID
	a.StartsAt = start
	a.EndsAt = end
	a.Notes = req.Notes
	if req.Status != "" {
		a.Status = req.Status
	}
	if req.ServiceID != "" {
		a.ServiceID = &req.ServiceID
	}

	if err := ac.repo.Update(c.Request.Context(), a); err != nil {
		response.ServerError(c, err, "更新预约失败")
		return
	}

	response.Data(c, a)
}

// Delete 删除预约
// DELETE /v1/appointments/:id
func (ac *AppointmentController) Delete(c *gin.Context) {
	if _, err := ac.repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "预约不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	if err := ac.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ServerError(c, err, "删除预约失败")
		return
	}

	response.Data(c, gin.H{"deleted": true})
}
