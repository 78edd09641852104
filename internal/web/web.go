// Package web serves the server-rendered Warbler pages. Browser sessions
// live in Redis; every mutating route requires a logged-in user.
package web

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/session"
	"github.com/d60-Lab/warbler/internal/storage"
	"github.com/d60-Lab/warbler/internal/validation"
	"github.com/d60-Lab/warbler/pkg/logger"
)

const (
	flashSuccess = "success"
	flashDanger  = "danger"
	flashInfo    = "info"

	listPageSize = 100
)

type Handler struct {
	users         service.UserService
	relationships service.RelationshipService
	messages      service.MessageService
	sessions      *session.Manager
	images        storage.ImageStore
	metrics       *metrics.Metrics
}

// NewHandler images 可以为 nil（未启用对象存储）
func NewHandler(
	users service.UserService,
	relationships service.RelationshipService,
	messages service.MessageService,
	sessions *session.Manager,
	images storage.ImageStore,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		users:         users,
		relationships: relationships,
		messages:      messages,
		sessions:      sessions,
		images:        images,
		metrics:       m,
	}
}

// Register 挂载模板、静态资源与全部页面路由
func (h *Handler) Register(r *gin.Engine, loginLimiter *middleware.IPRateLimiter) error {
	if err := validation.Register(); err != nil {
		return err
	}
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", Static())

	pages := r.Group("/", middleware.NoCache(), middleware.LoadUser(h.sessions, h.users))
	auth := middleware.RequireUser(h.sessions)

	pages.GET("/", h.Home)
	pages.GET("/signup", h.SignupForm)
	pages.POST("/signup", middleware.RateLimit(loginLimiter), h.Signup)
	pages.GET("/login", h.LoginForm)
	pages.POST("/login", middleware.RateLimit(loginLimiter), h.Login)
	pages.GET("/logout", h.Logout)

	pages.GET("/users", h.ListUsers)
	pages.GET("/users/profile", auth, h.EditProfileForm)
	pages.POST("/users/profile", auth, h.EditProfile)
	pages.POST("/users/delete", auth, h.DeleteUser)
	pages.POST("/users/follow/:id", auth, h.Follow)
	pages.POST("/users/stop-following/:id", auth, h.StopFollowing)
	pages.GET("/users/:id", h.ShowUser)
	pages.GET("/users/:id/following", auth, h.ShowFollowing)
	pages.GET("/users/:id/followers", auth, h.ShowFollowers)
	pages.GET("/users/:id/likes", auth, h.ShowLikes)

	pages.GET("/messages/new", auth, h.NewMessageForm)
	pages.POST("/messages/new", auth, h.CreateMessage)
	pages.POST("/messages/add_like/:id", auth, h.ToggleLike)
	pages.GET("/messages/:id", h.ShowMessage)
	pages.POST("/messages/:id/delete", auth, h.DeleteMessage)

	r.NoRoute(middleware.NoCache(), middleware.LoadUser(h.sessions, h.users), func(c *gin.Context) {
		h.renderError(c, http.StatusNotFound, "Page not found.")
	})
	return nil
}

// render 补齐布局需要的字段并取出 flash
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	for _, k := range []string{"Title", "BodyClass", "Query"} {
		if _, ok := data[k]; !ok {
			data[k] = ""
		}
	}
	if _, ok := data["Liked"]; !ok {
		data["Liked"] = map[string]bool{}
	}
	data["CurrentUser"] = middleware.CurrentUser(c)

	s := h.sessions.Start(c)
	data["Flashes"] = s.PopFlashes()
	if err := h.sessions.SaveIfDirty(c, s); err != nil {
		logger.Warn("save session failed", zap.Error(err))
	}
	c.HTML(status, name, data)
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	h.render(c, status, "error.html", gin.H{"Title": http.StatusText(status), "Status": status, "Message": message})
}

func (h *Handler) flash(c *gin.Context, category, message string) {
	h.sessions.Start(c).AddFlash(category, message)
}

// redirect 保存会话后 302
func (h *Handler) redirect(c *gin.Context, location string) {
	s := h.sessions.Start(c)
	if err := h.sessions.SaveIfDirty(c, s); err != nil {
		logger.Warn("save session failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, location)
}

// handleError 把服务层错误映射成页面响应
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		h.renderError(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, service.ErrMessageNotFound):
		h.renderError(c, http.StatusNotFound, "Message not found.")
	case errors.Is(err, service.ErrForbidden):
		middleware.Unauthorized(c, h.sessions)
	default:
		logger.Error("page failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		h.renderError(c, http.StatusInternalServerError, "Something went wrong.")
	}
}
