package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered storefront customer.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email           string     `gorm:"type:text;not null;uniqueIndex"`
	Name            string     `gorm:"column:name;not null"`
	PasswordHash    string     `gorm:"column:password_hash;not null"`
	Phone           string     `gorm:"column:phone;not null;default:''"`
	BirthDate       string     `gorm:"column:birth_date;not null;default:''"`
	PreferredGenres []string   `gorm:"column:preferred_genres;serializer:json"`
	Notifications   bool       `gorm:"column:notifications;not null"`
	Newsletter      bool       `gorm:"column:newsletter;not null"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// UserFavorite marks a catalog movie as a favorite of a user.
type UserFavorite struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	MovieID   int       `gorm:"column:movie_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserFavorite) TableName() string { return "user_favorites" }
