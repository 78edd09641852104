package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/validation"
)

func (h *Handler) NewMessageForm(c *gin.Context) {
	h.render(c, http.StatusOK, "messages_new.html", gin.H{"Title": "New message", "Form": messageForm{}})
}

func (h *Handler) CreateMessage(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var form messageForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "messages_new.html", gin.H{"Title": "New message", "Form": form, "Error": validation.Message(err)})
		return
	}
	_, err := h.messages.Create(c.Request.Context(), u.ID, form.Text)
	if errors.Is(err, service.ErrInvalidMessage) {
		h.render(c, http.StatusOK, "messages_new.html", gin.H{"Title": "New message", "Form": form, "Error": err.Error()})
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.metrics.RecordAction("message")
	h.redirect(c, "/users/"+u.ID)
}

func (h *Handler) ShowMessage(c *gin.Context) {
	ctx := c.Request.Context()
	msg, err := h.messages.Get(ctx, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	likes, err := h.messages.LikeCount(ctx, msg.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	liked, err := h.likedBy(ctx, h.viewerID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "messages_show.html", gin.H{
		"Title":     "Message",
		"Message":   msg,
		"LikeCount": likes,
		"IsLiked":   liked[msg.ID],
	})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if err := h.messages.Delete(c.Request.Context(), u.ID, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	h.redirect(c, "/users/"+u.ID)
}

func (h *Handler) ToggleLike(c *gin.Context) {
	u := middleware.CurrentUser(c)
	liked, err := h.messages.ToggleLike(c.Request.Context(), u.ID, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if liked {
		h.metrics.RecordAction("like")
	} else {
		h.metrics.RecordAction("unlike")
	}
	h.redirect(c, safeReferer(c))
}

// safeReferer 只接受同站的 Referer，否则回首页
func safeReferer(c *gin.Context) string {
	ref := c.Request.Referer()
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request.Host) {
		return "/"
	}
	target := u.EscapedPath()
	if target == "" || target[0] != '/' || (len(target) > 1 && target[1] == '/') {
		return "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
