package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	// GetByID 预加载作者
	GetByID(ctx context.Context, id string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Message, error)
	// Timeline 指定作者集合的最新消息，按时间倒序
	Timeline(ctx context.Context, authorIDs []string, limit int) ([]*model.Message, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) Create(ctx context.Context, m *model.Message) error {
	return translateError(r.db.WithContext(ctx).Omit("User").Create(m).Error)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Message{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *messageRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *messageRepository) Timeline(ctx context.Context, authorIDs []string, limit int) ([]*model.Message, error) {
	if len(authorIDs) == 0 {
		return []*model.Message{}, nil
	}
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ?", authorIDs).
		Order("timestamp DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *messageRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}
