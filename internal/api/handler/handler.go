// Package handler 提供 /api/v1 下的 JSON 接口，使用 Bearer token 认证。
package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/auth"
	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/validation"
	"github.com/d60-Lab/warbler/pkg/response"
)

type Handler struct {
	userService    service.UserService
	relService     service.RelationshipService
	messageService service.MessageService
	tokens         *auth.TokenProvider
	metrics        *metrics.Metrics
}

func NewHandler(
	userService service.UserService,
	relService service.RelationshipService,
	messageService service.MessageService,
	tokens *auth.TokenProvider,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		userService:    userService,
		relService:     relService,
		messageService: messageService,
		tokens:         tokens,
		metrics:        m,
	}
}

// Register 挂载 API 路由；auth 之前的路由无需 token
func (h *Handler) Register(api *gin.RouterGroup, loginLimiter *middleware.IPRateLimiter) {
	api.POST("/auth/signup", middleware.RateLimit(loginLimiter), h.Signup)
	api.POST("/auth/token", middleware.RateLimit(loginLimiter), h.Token)

	authed := api.Group("", middleware.JWTAuth(h.tokens))
	authed.GET("/users", h.ListUsers)
	authed.GET("/users/:id", h.GetUser)
	authed.GET("/users/:id/following", h.ListFollowing)
	authed.GET("/users/:id/followers", h.ListFollowers)
	authed.GET("/users/:id/likes", h.ListLikes)
	authed.POST("/users/:id/follow", h.Follow)
	authed.DELETE("/users/:id/follow", h.Unfollow)

	authed.POST("/messages", h.CreateMessage)
	authed.GET("/messages/:id", h.GetMessage)
	authed.DELETE("/messages/:id", h.DeleteMessage)
	authed.POST("/messages/:id/like", h.ToggleLike)
	authed.GET("/timeline", h.Timeline)
}

// writeError 服务层错误到 HTTP 状态码的映射
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrMessageNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrDuplicateUser):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrFollowSelf),
		errors.Is(err, service.ErrInvalidSignup),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrInvalidMessage):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func bindError(c *gin.Context, err error) {
	response.BadRequest(c, validation.Message(err))
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func limitParam(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 {
		return def
	}
	return limit
}
