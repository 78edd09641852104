// Package session implements server-side sessions kept in Redis. The cookie
// carries only an opaque id; the current user and pending flash messages
// live in the store.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/pkg/logger"
)

const contextKey = "warbler.session"

// Flash 一次性提示，category 对应页面上的样式（success、danger 等）
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type data struct {
	UserID  string  `json:"curr_user,omitempty"`
	Flashes []Flash `json:"flashes,omitempty"`
}

type Session struct {
	ID    string
	data  data
	dirty bool
	// stale 从存储加载、尚未续期
	stale bool
}

func (s *Session) UserID() string { return s.data.UserID }

func (s *Session) SetUser(id string) {
	s.data.UserID = id
	s.dirty = true
}

func (s *Session) ClearUser() {
	if s.data.UserID != "" {
		s.data.UserID = ""
		s.dirty = true
	}
}

func (s *Session) AddFlash(category, message string) {
	s.data.Flashes = append(s.data.Flashes, Flash{Category: category, Message: message})
	s.dirty = true
}

// PopFlashes 取出并清空 flash
func (s *Session) PopFlashes() []Flash {
	out := s.data.Flashes
	if len(out) > 0 {
		s.data.Flashes = nil
		s.dirty = true
	}
	return out
}

type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewManager(store Store, cfg config.SessionConfig) *Manager {
	name := cfg.CookieName
	if name == "" {
		name = "warbler_session"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{store: store, cookieName: name, ttl: ttl, secure: cfg.Secure}
}

func (m *Manager) CookieName() string { return m.cookieName }

// Start 返回本次请求的会话：先看 context，再按 cookie 从存储加载，都没有则新建
func (m *Manager) Start(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		return v.(*Session)
	}
	var s *Session
	if id, err := c.Cookie(m.cookieName); err == nil && id != "" {
		loaded, err := m.store.Load(c.Request.Context(), id)
		switch {
		case err == nil:
			s = loaded
			s.stale = true
		case errors.Is(err, ErrNotFound):
		default:
			logger.Warn("load session failed", zap.Error(err))
		}
	}
	if s == nil {
		s = &Session{ID: uuid.New().String()}
	}
	c.Set(contextKey, s)
	return s
}

// Save 持久化会话并写 cookie；必须在写响应（包括重定向）之前调用
func (m *Manager) Save(c *gin.Context, s *Session) error {
	if err := m.store.Save(c.Request.Context(), s, m.ttl); err != nil {
		return err
	}
	s.dirty, s.stale = false, false
	m.writeCookie(c, s.ID, int(m.ttl.Seconds()))
	return nil
}

// SaveIfDirty 有改动时保存；未改动但来自存储的会话只续期（滑动过期）
func (m *Manager) SaveIfDirty(c *gin.Context, s *Session) error {
	if s.dirty {
		return m.Save(c, s)
	}
	if !s.stale {
		return nil
	}
	if err := m.store.Touch(c.Request.Context(), s.ID, m.ttl); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	s.stale = false
	m.writeCookie(c, s.ID, int(m.ttl.Seconds()))
	return nil
}

// Renew 丢弃旧会话并换一个新 id（登录、登出时调用，防止会话固定）
func (m *Manager) Renew(c *gin.Context) *Session {
	old := m.Start(c)
	if err := m.store.Delete(c.Request.Context(), old.ID); err != nil {
		logger.Warn("delete session failed", zap.String("session", old.ID), zap.Error(err))
	}
	s := &Session{ID: uuid.New().String(), dirty: true}
	c.Set(contextKey, s)
	return s
}

func (m *Manager) writeCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}
