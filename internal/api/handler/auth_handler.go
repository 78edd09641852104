package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/response"
)

type signupRequest struct {
	Username string `json:"username" binding:"required,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	ImageURL string `json:"image_url" binding:"max=2048"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Signup 注册并直接签发 token
// @Summary 注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body signupRequest true "注册信息"
// @Success 201 {object} response.Response{data=tokenResponse}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.userService.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.metrics.RecordAction("signup")

	resp, err := h.issue(u)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, resp)
}

// Token 用户名密码换取 token
// @Summary 获取 token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body tokenRequest true "登录信息"
// @Success 200 {object} response.Response{data=tokenResponse}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/token [post]
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.metrics.RecordAction("login_failure")
		writeError(c, err)
		return
	}
	h.metrics.RecordAction("login_success")

	resp, err := h.issue(u)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *Handler) issue(u *model.User) (*tokenResponse, error) {
	token, exp, err := h.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{Token: token, ExpiresAt: exp, User: u}, nil
}
