package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/response"
)

type createMessageRequest struct {
	Text string `json:"text" binding:"required,max=140"`
}

type messageResponse struct {
	*model.Message
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}

// CreateMessage 发布消息
// @Summary 发布消息
// @Tags 消息
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createMessageRequest true "消息内容"
// @Success 201 {object} response.Response{data=model.Message}
// @Failure 400 {object} response.Response
// @Router /api/v1/messages [post]
func (h *Handler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	msg, err := h.messageService.Create(c.Request.Context(), middleware.TokenUserID(c), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	h.metrics.RecordAction("message")
	response.Created(c, msg)
}

// GetMessage 消息详情
// @Summary 消息详情
// @Tags 消息
// @Security BearerAuth
// @Param id path string true "消息ID"
// @Success 200 {object} response.Response{data=messageResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	ctx := c.Request.Context()
	msg, err := h.messageService.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	likes, err := h.messageService.LikeCount(ctx, msg.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	liked, err := h.messageService.LikedIDs(ctx, middleware.TokenUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, messageResponse{Message: msg, Likes: likes, Liked: liked[msg.ID]})
}

// DeleteMessage 删除消息，仅作者本人
// @Summary 删除消息
// @Tags 消息
// @Security BearerAuth
// @Param id path string true "消息ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.messageService.Delete(c.Request.Context(), middleware.TokenUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleLike 点赞 / 取消点赞
// @Summary 切换点赞
// @Tags 消息
// @Security BearerAuth
// @Param id path string true "消息ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	liked, err := h.messageService.ToggleLike(c.Request.Context(), middleware.TokenUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if liked {
		h.metrics.RecordAction("like")
	} else {
		h.metrics.RecordAction("unlike")
	}
	response.Success(c, gin.H{"liked": liked})
}

// Timeline 首页时间线：关注的人加自己
// @Summary 时间线
// @Tags 消息
// @Security BearerAuth
// @Param limit query int false "条数" default(100)
// @Success 200 {object} response.Response{data=[]model.Message}
// @Router /api/v1/timeline [get]
func (h *Handler) Timeline(c *gin.Context) {
	list, err := h.messageService.HomeTimeline(c.Request.Context(), middleware.TokenUserID(c), limitParam(c, service.HomeTimelineLimit))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}
