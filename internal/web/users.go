package web

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/storage"
	"github.com/d60-Lab/warbler/internal/validation"
)

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ListUsers 用户列表，q 按用户名子串过滤
func (h *Handler) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page := pageParam(c)
	users, err := h.users.Search(c.Request.Context(), q, page, listPageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	data := gin.H{"Title": "Users", "Users": users, "Query": q}
	if len(users) == listPageSize {
		data["NextPage"] = page + 1
	}
	h.render(c, http.StatusOK, "users_index.html", data)
}

func (h *Handler) viewerID(c *gin.Context) string {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return ""
}

func (h *Handler) likedBy(ctx context.Context, viewerID string) (map[string]bool, error) {
	if viewerID == "" {
		return map[string]bool{}, nil
	}
	return h.messages.LikedIDs(ctx, viewerID)
}

func (h *Handler) ShowUser(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := h.viewerID(c)
	profile, err := h.users.Profile(ctx, viewer, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	msgs, err := h.messages.ListByUser(ctx, profile.User.ID, listPageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	liked, err := h.likedBy(ctx, viewer)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "users_show.html", gin.H{
		"Title":    "@" + profile.User.Username,
		"Profile":  profile,
		"Messages": msgs,
		"Liked":    liked,
	})
}

func (h *Handler) ShowFollowing(c *gin.Context) {
	h.showRelations(c, "Following", h.relationships.ListFollowing)
}

func (h *Handler) ShowFollowers(c *gin.Context) {
	h.showRelations(c, "Followers", h.relationships.ListFollowers)
}

type relationLister func(ctx context.Context, userID string, page, pageSize int) ([]*model.User, error)

func (h *Handler) showRelations(c *gin.Context, title string, list relationLister) {
	ctx := c.Request.Context()
	profile, err := h.users.Profile(ctx, h.viewerID(c), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	users, err := list(ctx, profile.User.ID, pageParam(c), listPageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "users_relations.html", gin.H{
		"Title":   title,
		"Profile": profile,
		"Users":   users,
	})
}

func (h *Handler) ShowLikes(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := h.viewerID(c)
	profile, err := h.users.Profile(ctx, viewer, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	msgs, err := h.messages.ListLiked(ctx, profile.User.ID, listPageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	liked, err := h.likedBy(ctx, viewer)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "users_likes.html", gin.H{
		"Title":    "Likes",
		"Profile":  profile,
		"Messages": msgs,
		"Liked":    liked,
	})
}

func (h *Handler) Follow(c *gin.Context) {
	u := middleware.CurrentUser(c)
	err := h.relationships.Follow(c.Request.Context(), u.ID, c.Param("id"))
	switch {
	case errors.Is(err, service.ErrFollowSelf):
		h.flash(c, flashDanger, "You cannot follow yourself.")
	case err != nil:
		h.handleError(c, err)
		return
	default:
		h.metrics.RecordAction("follow")
	}
	h.redirect(c, "/users/"+u.ID+"/following")
}

func (h *Handler) StopFollowing(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if err := h.relationships.Unfollow(c.Request.Context(), u.ID, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	h.metrics.RecordAction("unfollow")
	h.redirect(c, "/users/"+u.ID+"/following")
}

func profileFormFor(u *model.User) profileForm {
	return profileForm{
		Username:       u.Username,
		Email:          u.Email,
		ImageURL:       u.ImageURL,
		HeaderImageURL: u.HeaderImageURL,
		Bio:            u.Bio,
		Location:       u.Location,
	}
}

func (h *Handler) EditProfileForm(c *gin.Context) {
	u := middleware.CurrentUser(c)
	h.render(c, http.StatusOK, "users_edit.html", gin.H{
		"Title":          "Edit profile",
		"Form":           profileFormFor(u),
		"UploadsEnabled": h.images != nil,
	})
}

func (h *Handler) EditProfile(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var form profileForm
	renderForm := func(msg string) {
		form.Password = ""
		h.render(c, http.StatusOK, "users_edit.html", gin.H{
			"Title":          "Edit profile",
			"Form":           form,
			"Error":          msg,
			"UploadsEnabled": h.images != nil,
		})
	}
	if err := c.ShouldBind(&form); err != nil {
		renderForm(validation.Message(err))
		return
	}

	ctx := c.Request.Context()
	if url, err := h.uploadField(c, "image", "avatars"); err != nil {
		renderForm(uploadMessage(err))
		return
	} else if url != "" {
		form.ImageURL = url
	}
	if url, err := h.uploadField(c, "header_image", "headers"); err != nil {
		renderForm(uploadMessage(err))
		return
	} else if url != "" {
		form.HeaderImageURL = url
	}

	_, err := h.users.UpdateProfile(ctx, u.ID, form.Password, service.ProfileInput{
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
	})
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.flash(c, flashDanger, "Wrong password, please try again.")
		h.redirect(c, "/")
		return
	case errors.Is(err, service.ErrDuplicateUser):
		renderForm("Username already taken")
		return
	case errors.Is(err, service.ErrInvalidSignup):
		renderForm(err.Error())
		return
	case err != nil:
		h.handleError(c, err)
		return
	}
	h.flash(c, flashSuccess, "Profile updated.")
	h.redirect(c, "/users/"+u.ID)
}

// uploadField 上传表单里的图片文件；未提供文件或未启用存储时返回空串
func (h *Handler) uploadField(c *gin.Context, field, folder string) (string, error) {
	if h.images == nil {
		return "", nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	return uploadFile(c.Request.Context(), h.images, folder, fh)
}

func uploadFile(ctx context.Context, store storage.ImageStore, folder string, fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if err := storage.ValidateImage(fh.Size, contentType); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return store.Upload(ctx, folder, fh.Filename, f, fh.Size, contentType)
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrUnsupportedImage):
		return "Only image uploads are allowed."
	case errors.Is(err, storage.ErrImageTooLarge):
		return "Image is too large."
	default:
		return "Upload failed, please try again."
	}
}

func (h *Handler) DeleteUser(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if err := h.users.Delete(c.Request.Context(), u.ID); err != nil {
		h.handleError(c, err)
		return
	}
	s := h.sessions.Renew(c)
	s.AddFlash(flashInfo, "Your account has been deleted.")
	h.redirect(c, "/signup")
}
