package models

import (
	"time"

	"github.com/google/uuid"
)

// ShiftCode represents a single redeemable SHiFT code discovered on one of
// the tracked sources. Codes are immutable once created; only the tracking
// fields (LastSeen, TimesScraped, IsActive) change on later scrape passes.
type ShiftCode struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string    `json:"code" gorm:"type:varchar(50);not null;uniqueIndex"`
	Reward       string    `json:"reward" gorm:"type:varchar(255);not null;default:'Golden Key'"`
	Expires      *string   `json:"expires" gorm:"type:varchar(100)"`
	Source       string    `json:"source" gorm:"type:varchar(100);not null"`
	FirstSeen    time.Time `json:"first_seen" gorm:"default:CURRENT_TIMESTAMP"`
	LastSeen     time.Time `json:"last_seen" gorm:"default:CURRENT_TIMESTAMP"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	TimesScraped int       `json:"times_scraped" gorm:"default:1"`
}

// NewShiftCode builds a freshly scraped code with the discovery timestamp set
func NewShiftCode(code, reward string, expires *string, source string) ShiftCode {
	if reward == "" {
		reward = "Golden Key"
	}
	now := time.Now().UTC()
	return ShiftCode{
		Code:         code,
		Reward:       reward,
		Expires:      expires,
		Source:       source,
		FirstSeen:    now,
		LastSeen:     now,
		IsActive:     true,
		TimesScraped: 1,
	}
}

// CodeHistoryEntry records one sighting of a code during a scrape pass
type CodeHistoryEntry struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	CodeID    uuid.UUID `json:"code_id"`
	Source    string    `json:"source"`
	ScrapedAt time.Time `json:"scraped_at" gorm:"default:CURRENT_TIMESTAMP"`
}
