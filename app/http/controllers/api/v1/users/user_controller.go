// Package users 用户控制器
package users

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"
	"gorm.io/gorm"

	"doula/app/models/user"
	"doula/app/repositories"
	"doula/app/requests"
	"doula/pkg/response"
)

// UserController 用户控制器
type UserController struct {
	repo *repositories.UserRepository
}

// NewUserController 创建用户控制器
func NewUserController() *UserController {
	return &UserController{repo: repositories.NewUserRepository()}
}

// UserRequest 用户创建/更新请求
type UserRequest struct {
	Email     string `json:"email" valid:"email"`
	FirstName string `json:"first_name" valid:"first_name"`
	LastName  string `json:"last_name" valid:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role" valid:"role"`
}

var userRules = govalidator.MapData{
	"email":      []string{"required", "email"},
	"first_name": []string{"required", "max:50"},
	"last_name":  []string{"required", "max:50"},
	"role":       []string{"in:client,doula,admin"},
}

var userMessages = govalidator.MapData{
	"email": []string{
		"required:邮箱不能为空",
		"email:邮箱格式不正确",
	},
	"first_name": []string{
		"required:名字不能为空",
		"max:名字不能超过 50 个字符",
	},
	"last_name": []string{
		"required:姓氏不能为空",
		"max:姓氏不能超过 50 个字符",
	},
	"role": []string{
		"in:角色必须是 client、doula 或 admin",
	},
}

// Store 创建用户
// POST /v1/users
func (uc *UserController) Store(c *gin.Context) {
	req, err := requests.ValidateRequest[UserRequest](c, userRules, userMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	role := req.Role
	if role == "" {
		role = "client"
	}

	u := &user.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      role,
	}
	if err := uc.repo.Create(c.Request.Context(), u); err != nil {
		response.ServerError(c, err, "创建用户失败")
		return
	}

	response.Created(c, u)
}

// Show 获取用户详情
// GET /v1/users/:id
func (uc *UserController) Show(c *gin.Context) {
	u, err := uc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "用户不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	response.Data(c, u)
}

// Index 分页获取用户列表
// GET /v1/users
func (uc *UserController) Index(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, total, err := uc.repo.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServerError(c, err)
		return
	}

	response.Data(c, gin.H{
		"items": users,
		"total": total,
	})
}

// Update 更新用户
// PUT /v1/users/:id
func (uc *UserController) Update(c *gin.Context) {
	u, err := uc.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "用户不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	req, err := requests.ValidateRequest[UserRequest](c, userRules, userMessages)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	u.Email = req.Email
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Phone = req.Phone
	if req.Role != "" {
		u.Role = req.Role
	}

	if err := uc.repo.Update(c.Request.Context(), u); err != nil {
		response.ServerError(c, err, "更新用户失败")
		return
	}

	response.Data(c, u)
}

// Delete 删除用户
// DELETE /v1/users/:id
func (uc *UserController) Delete(c *gin.Context) {
	if _, err := uc.repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "用户不存在")
			return
		}
		response.ServerError(c, err)
		return
	}

	if err := uc.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ServerError(c, err, "删除用户失败")
		return
	}

	response.Data(c, gin.H{"deleted": true})
}
