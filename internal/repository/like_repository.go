package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/warbler/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, userID, messageID string) error
	// Delete 返回实际删除的行数，用于点赞切换
	Delete(ctx context.Context, userID, messageID string) (int64, error)
	Exists(ctx context.Context, userID, messageID string) (bool, error)
	LikedMessageIDs(ctx context.Context, userID string) ([]string, error)
	// LikerIDs 点赞过该消息的用户
	LikerIDs(ctx context.Context, messageID string) ([]string, error)
	ListLikedMessages(ctx context.Context, userID string, limit int) ([]*model.Message, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountByMessage(ctx context.Context, messageID string) (int64, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Create(ctx context.Context, userID, messageID string) error {
	l := &model.Like{ID: uuid.New().String(), UserID: userID, MessageID: messageID}
	return translateError(r.db.WithContext(ctx).
		Omit("User", "Message").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(l).Error)
}

func (r *likeRepository) Delete(ctx context.Context, userID, messageID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&model.Like{})
	return res.RowsAffected, res.Error
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *likeRepository) LikedMessageIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("user_id = ?", userID).Pluck("message_id", &ids).Error
	return ids, err
}

func (r *likeRepository) LikerIDs(ctx context.Context, messageID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("message_id = ?", messageID).Pluck("user_id", &ids).Error
	return ids, err
}

func (r *likeRepository) ListLikedMessages(ctx context.Context, userID string, limit int) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *likeRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}

func (r *likeRepository) CountByMessage(ctx context.Context, messageID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("message_id = ?", messageID).Count(&cnt).Error
	return cnt, err
}
