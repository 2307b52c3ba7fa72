package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationSubscription marks a Discord channel that receives an
// announcement whenever a previously unseen code is discovered
type NotificationSubscription struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	ChannelID    string    `json:"channel_id" gorm:"type:varchar(50);not null;uniqueIndex"`
	GuildID      string    `json:"guild_id" gorm:"type:varchar(50);not null"`
	SubscribedAt time.Time `json:"subscribed_at" gorm:"default:CURRENT_TIMESTAMP"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
}
