package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is a confirmed purchase. Snapshot holds the full order as JSON so the
// history view can be rebuilt without joining catalog data that may change.
type Order struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;index"`
	SessionID  string    `gorm:"column:session_id;not null;index"`
	Status     string    `gorm:"column:status;not null"`
	ItemCount  int       `gorm:"column:item_count;not null"`
	TotalCents int64     `gorm:"column:total_cents;not null"`
	Snapshot   string    `gorm:"column:snapshot;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}
