package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/pkg/response"
)

// Follow 当前用户关注 id
// @Summary 关注用户
// @Tags 关系链
// @Security BearerAuth
// @Produce json
// @Param id path string true "被关注的用户ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	if err := h.relService.Follow(c.Request.Context(), middleware.TokenUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.metrics.RecordAction("follow")
	response.Success(c, nil)
}

// Unfollow 取消关注，未关注时同样成功
// @Summary 取消关注
// @Tags 关系链
// @Security BearerAuth
// @Produce json
// @Param id path string true "被关注的用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/users/{id}/follow [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	if err := h.relService.Unfollow(c.Request.Context(), middleware.TokenUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.metrics.RecordAction("unfollow")
	response.Success(c, nil)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page, pageSize := pagination(c)
	list, err := h.relService.ListFollowing(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	page, pageSize := pagination(c)
	list, err := h.relService.ListFollowers(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
