package model

import "time"

// Like 点赞；(user_id, message_id) 唯一
type Like struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_like_pair,unique;index:idx_like_user"`
	MessageID string    `gorm:"type:varchar(36);not null;index:idx_like_pair,unique;index:idx_like_message"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Message   *Message  `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }
