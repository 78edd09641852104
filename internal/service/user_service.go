package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/pkg/logger"
)

type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

// ProfileInput 资料编辑；图片为空时恢复默认图
type ProfileInput struct {
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

// UserProfile 个人主页所需数据。IsFollowing 表示浏览者是否关注了该用户。
type UserProfile struct {
	User         *model.User        `json:"user"`
	Stats        cache.ProfileStats `json:"stats"`
	IsFollowing  bool               `json:"is_following"`
	IsFollowedBy bool               `json:"is_followed_by"`
}

type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Search(ctx context.Context, q string, page, pageSize int) ([]*model.User, error)
	// UpdateProfile 需要当前密码
	UpdateProfile(ctx context.Context, userID, password string, in ProfileInput) (*model.User, error)
	Delete(ctx context.Context, userID string) error
	Profile(ctx context.Context, viewerID, userID string) (*UserProfile, error)
}

type userService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	hasher  PasswordHasher
	stats   StatsStore
	events  *EventDispatcher
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository, hasher PasswordHasher, stats StatsStore, events *EventDispatcher) UserService {
	return &userService{users: users, follows: follows, hasher: hasher, stats: stats, events: events}
}

func (s *userService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	if in.Password == "" {
		return nil, ErrEmptyPassword
	}
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" {
		return nil, ErrInvalidSignup
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		ID:             uuid.New().String(),
		Username:       username,
		Email:          email,
		Password:       hash,
		ImageURL:       orDefault(in.ImageURL, model.DefaultImageURL),
		HeaderImageURL: model.DefaultHeaderImageURL,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	logger.Info("user signed up", zap.String("user", u.ID), zap.String("username", u.Username))
	s.emit(newEvent(ctx, EventUserRegistered, u.ID, u.ID))
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(u.Password, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	return u, nil
}

func (s *userService) Search(ctx context.Context, q string, page, pageSize int) ([]*model.User, error) {
	offset, limit := pageWindow(page, pageSize)
	return s.users.Search(ctx, q, offset, limit)
}

func (s *userService) UpdateProfile(ctx context.Context, userID, password string, in ProfileInput) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}
	if err := s.hasher.Compare(u.Password, password); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" {
		return nil, ErrInvalidSignup
	}
	u.Username = username
	u.Email = email
	u.ImageURL = orDefault(in.ImageURL, model.DefaultImageURL)
	u.HeaderImageURL = orDefault(in.HeaderImageURL, model.DefaultHeaderImageURL)
	u.Bio = strings.TrimSpace(in.Bio)
	u.Location = strings.TrimSpace(in.Location)

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	s.emit(newEvent(ctx, EventUserUpdated, u.ID, u.ID))
	return u, nil
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return userErr(err)
	}
	if s.stats != nil {
		// 关注者、点赞者的计数都可能变化
		if err := s.stats.Flush(ctx); err != nil {
			logger.Warn("flush stats cache failed", zap.String("user", userID), zap.Error(err))
		}
	}
	logger.Info("user deleted", zap.String("user", userID))
	s.emit(newEvent(ctx, EventUserDeleted, userID, userID))
	return nil
}

func (s *userService) Profile(ctx context.Context, viewerID, userID string) (*UserProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}
	p := &UserProfile{User: u}
	if s.stats != nil {
		if p.Stats, err = s.stats.Get(ctx, userID); err != nil {
			return nil, err
		}
	}
	if viewerID != "" && viewerID != userID {
		if p.IsFollowing, err = s.follows.Exists(ctx, viewerID, userID); err != nil {
			return nil, err
		}
		if p.IsFollowedBy, err = s.follows.Exists(ctx, userID, viewerID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *userService) emit(e Event) {
	if s.events != nil {
		s.events.Enqueue(e)
	}
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
