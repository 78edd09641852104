package model

import "time"

const (
	DefaultImageURL       = "/static/images/default-pic.svg"
	DefaultHeaderImageURL = "/static/images/warbler-hero.svg"
)

// User 用户；username / email 均唯一
type User struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email          string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username       string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	ImageURL       string    `json:"image_url" gorm:"type:text"`
	HeaderImageURL string    `json:"header_image_url" gorm:"type:text"`
	Bio            string    `json:"bio" gorm:"type:text"`
	Location       string    `json:"location" gorm:"type:varchar(128)"`
	Password       string    `json:"-" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
