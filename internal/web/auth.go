package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/validation"
)

// Home 未登录显示欢迎页，登录后显示时间线
func (h *Handler) Home(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		h.render(c, http.StatusOK, "home_anon.html", gin.H{"BodyClass": "home-anon"})
		return
	}
	ctx := c.Request.Context()
	timeline, err := h.messages.HomeTimeline(ctx, u.ID, service.HomeTimelineLimit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	liked, err := h.messages.LikedIDs(ctx, u.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	profile, err := h.users.Profile(ctx, u.ID, u.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "home.html", gin.H{
		"Messages": timeline,
		"Liked":    liked,
		"Stats":    profile.Stats,
	})
}

func (h *Handler) SignupForm(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up", "Form": signupForm{}})
}

func (h *Handler) Signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up", "Form": form, "Error": validation.Message(err)})
		return
	}
	u, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		ImageURL: form.ImageURL,
	})
	switch {
	case errors.Is(err, service.ErrDuplicateUser):
		h.flash(c, flashDanger, "Username already taken")
		h.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up", "Form": form})
		return
	case errors.Is(err, service.ErrEmptyPassword), errors.Is(err, service.ErrInvalidSignup):
		h.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up", "Form": form, "Error": err.Error()})
		return
	case err != nil:
		h.handleError(c, err)
		return
	}
	h.metrics.RecordAction("signup")

	s := h.sessions.Renew(c)
	s.SetUser(u.ID)
	h.redirect(c, "/")
}

func (h *Handler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": loginForm{}})
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": form, "Error": validation.Message(err)})
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.metrics.RecordAction("login_failure")
		h.flash(c, flashDanger, "Invalid credentials.")
		h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": loginForm{Username: form.Username}})
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.metrics.RecordAction("login_success")

	s := h.sessions.Renew(c)
	s.SetUser(u.ID)
	s.AddFlash(flashSuccess, "Hello, "+u.Username+"!")
	h.redirect(c, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	s := h.sessions.Renew(c)
	s.AddFlash(flashSuccess, "You have successfully logged out.")
	h.redirect(c, "/login")
}
