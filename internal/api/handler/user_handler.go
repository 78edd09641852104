package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/pkg/response"
)

// ListUsers 用户列表，q 按用户名子串过滤
// @Summary 搜索用户
// @Tags 用户
// @Security BearerAuth
// @Param q query string false "用户名关键字"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := pagination(c)
	list, err := h.userService.Search(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// GetUser 用户资料与统计
// @Summary 用户资料
// @Tags 用户
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=service.UserProfile}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.userService.Profile(c.Request.Context(), middleware.TokenUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, profile)
}

// ListLikes 用户点过赞的消息
// @Summary 点赞列表
// @Tags 用户
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param limit query int false "条数" default(100)
// @Success 200 {object} response.Response{data=[]model.Message}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/likes [get]
func (h *Handler) ListLikes(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")
	if _, err := h.userService.Get(ctx, userID); err != nil {
		writeError(c, err)
		return
	}
	list, err := h.messageService.ListLiked(ctx, userID, limitParam(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}
