package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/session"
	"github.com/d60-Lab/warbler/pkg/logger"
)

const (
	currentUserKey = "warbler.current_user"

	// FlashUnauthorized 未登录或无权限时的提示
	FlashUnauthorized = "Access unauthorized."
)

// UserLookup 按 id 取用户
type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// LoadUser 把会话中的用户放进 context。会话指向的用户已不存在时按匿名处理并清掉会话里的 id。
func LoadUser(sessions *session.Manager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Start(c)
		if id := s.UserID(); id != "" {
			u, err := users.Get(c.Request.Context(), id)
			switch {
			case err == nil:
				c.Set(currentUserKey, u)
			case errors.Is(err, service.ErrUserNotFound):
				s.ClearUser()
			default:
				logger.Warn("load session user failed", zap.String("user", id), zap.Error(err))
			}
		}
		c.Next()
	}
}

// CurrentUser 当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// RequireUser 未登录时写 flash 并重定向到首页
func RequireUser(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		Unauthorized(c, sessions)
	}
}

// Unauthorized flash "Access unauthorized." 后 302 到 /
func Unauthorized(c *gin.Context, sessions *session.Manager) {
	s := sessions.Start(c)
	s.AddFlash("danger", FlashUnauthorized)
	if err := sessions.Save(c, s); err != nil {
		logger.Error("save session failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}
