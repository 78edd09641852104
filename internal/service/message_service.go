package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
)

const (
	maxMessageRunes = model.MaxMessageLength
	// HomeTimelineLimit 首页时间线条数
	HomeTimelineLimit = 100
)

type MessageService interface {
	Create(ctx context.Context, userID, text string) (*model.Message, error)
	Get(ctx context.Context, id string) (*model.Message, error)
	// Delete 只有作者本人可以删除
	Delete(ctx context.Context, userID, messageID string) error
	// ToggleLike 已赞则取消，否则点赞；返回操作后的状态
	ToggleLike(ctx context.Context, userID, messageID string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Message, error)
	ListLiked(ctx context.Context, userID string, limit int) ([]*model.Message, error)
	// HomeTimeline 关注的人加自己的最新消息
	HomeTimeline(ctx context.Context, userID string, limit int) ([]*model.Message, error)
	LikedIDs(ctx context.Context, userID string) (map[string]bool, error)
	LikeCount(ctx context.Context, messageID string) (int64, error)
}

type messageService struct {
	messages repository.MessageRepository
	likes    repository.LikeRepository
	follows  repository.FollowRepository
	stats    StatsStore
	events   *EventDispatcher
	now      func() time.Time
}

func NewMessageService(messages repository.MessageRepository, likes repository.LikeRepository, follows repository.FollowRepository, stats StatsStore, events *EventDispatcher) MessageService {
	return &messageService{
		messages: messages,
		likes:    likes,
		follows:  follows,
		stats:    stats,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *messageService) Create(ctx context.Context, userID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > maxMessageRunes {
		return nil, ErrInvalidMessage
	}
	m := &model.Message{ID: uuid.New().String(), UserID: userID, Text: text, Timestamp: s.now()}
	if err := s.messages.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.emit(newEvent(ctx, EventMessageCreated, userID, m.ID))
	return m, nil
}

func (s *messageService) Get(ctx context.Context, id string) (*model.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, messageErr(err)
	}
	return m, nil
}

func (s *messageService) Delete(ctx context.Context, userID, messageID string) error {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return messageErr(err)
	}
	if m.UserID != userID {
		return ErrForbidden
	}
	likers, err := s.likes.LikerIDs(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return messageErr(err)
	}
	s.invalidate(ctx, append(likers, userID)...)
	s.emit(newEvent(ctx, EventMessageDeleted, userID, messageID))
	return nil
}

func (s *messageService) ToggleLike(ctx context.Context, userID, messageID string) (bool, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, messageErr(err)
	}
	if m.UserID == userID {
		return false, ErrLikeOwnMessage
	}

	removed, err := s.likes.Delete(ctx, userID, messageID)
	if err != nil {
		return false, err
	}
	liked := removed == 0
	if liked {
		if err := s.likes.Create(ctx, userID, messageID); err != nil {
			if errors.Is(err, repository.ErrForeignKey) {
				return false, s.missingLikeRef(ctx, messageID)
			}
			return false, err
		}
	}

	s.invalidate(ctx, userID)
	if liked {
		s.emit(newEvent(ctx, EventMessageLiked, userID, messageID))
	} else {
		s.emit(newEvent(ctx, EventMessageUnliked, userID, messageID))
	}
	return liked, nil
}

// missingLikeRef 外键失败时区分是消息被删还是点赞用户不存在
func (s *messageService) missingLikeRef(ctx context.Context, messageID string) error {
	if _, err := s.messages.GetByID(ctx, messageID); err != nil {
		return messageErr(err)
	}
	return ErrUserNotFound
}

func (s *messageService) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Message, error) {
	return s.messages.ListByUser(ctx, userID, clampLimit(limit))
}

func (s *messageService) ListLiked(ctx context.Context, userID string, limit int) ([]*model.Message, error) {
	return s.likes.ListLikedMessages(ctx, userID, clampLimit(limit))
}

func (s *messageService) HomeTimeline(ctx context.Context, userID string, limit int) ([]*model.Message, error) {
	ids, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids = append(ids, userID)
	return s.messages.Timeline(ctx, ids, clampLimit(limit))
}

func (s *messageService) LikedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := s.likes.LikedMessageIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *messageService) LikeCount(ctx context.Context, messageID string) (int64, error) {
	return s.likes.CountByMessage(ctx, messageID)
}

func (s *messageService) invalidate(ctx context.Context, userIDs ...string) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, userIDs...)
	}
}

func (s *messageService) emit(e Event) {
	if s.events != nil {
		s.events.Enqueue(e)
	}
}

func messageErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > HomeTimelineLimit {
		return HomeTimelineLimit
	}
	return limit
}
