package model

import "time"

// MaxMessageLength 单条消息最大字符数
const MaxMessageLength = 140

// Message 用户发布的短消息
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Text      string    `json:"text" gorm:"type:varchar(140);not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_message_user_ts"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_message_user_ts;index"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string { return "messages" }
