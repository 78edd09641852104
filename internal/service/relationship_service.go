package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]*model.User, error)
	ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]*model.User, error)
	// IsFollowing fromUserID 是否关注了 toUserID
	IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error)
	// IsFollowedBy userID 是否被 otherID 关注
	IsFollowedBy(ctx context.Context, userID, otherID string) (bool, error)
}

type relationshipService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	stats      StatsStore
	events     *EventDispatcher
}

func NewRelationshipService(followRepo repository.FollowRepository, userRepo repository.UserRepository, stats StatsStore, events *EventDispatcher) RelationshipService {
	return &relationshipService{followRepo: followRepo, userRepo: userRepo, stats: stats, events: events}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if _, err := s.userRepo.GetByID(ctx, toUserID); err != nil {
		return userErr(err)
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return ErrUserNotFound
		}
		return err
	}
	s.invalidate(ctx, fromUserID, toUserID)
	if s.events != nil {
		s.events.Enqueue(newEvent(ctx, EventFollowed, fromUserID, toUserID))
	}
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.invalidate(ctx, fromUserID, toUserID)
	if s.events != nil {
		s.events.Enqueue(newEvent(ctx, EventUnfollowed, fromUserID, toUserID))
	}
	return nil
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]*model.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, userErr(err)
	}
	offset, limit := pageWindow(page, pageSize)
	return s.followRepo.FollowingUsers(ctx, userID, offset, limit)
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]*model.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, userErr(err)
	}
	offset, limit := pageWindow(page, pageSize)
	return s.followRepo.FollowerUsers(ctx, userID, offset, limit)
}

func (s *relationshipService) IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	return s.followRepo.Exists(ctx, fromUserID, toUserID)
}

func (s *relationshipService) IsFollowedBy(ctx context.Context, userID, otherID string) (bool, error) {
	return s.followRepo.Exists(ctx, otherID, userID)
}

func (s *relationshipService) invalidate(ctx context.Context, userIDs ...string) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, userIDs...)
	}
}
