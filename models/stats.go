package models

import (
	"time"

	"github.com/google/uuid"
)

// CommandUsage records a single slash command invocation for analytics
type CommandUsage struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	CommandName string    `json:"command_name" gorm:"type:varchar(50);not null"`
	UserID      string    `json:"user_id" gorm:"type:varchar(50);not null"`
	GuildID     *string   `json:"guild_id" gorm:"type:varchar(50)"`
	UsedAt      time.Time `json:"used_at" gorm:"default:CURRENT_TIMESTAMP"`
}

// CodeStatistics aggregates counts across the codes table
type CodeStatistics struct {
	TotalCodes    int            `json:"total_codes"`
	ActiveCodes   int            `json:"active_codes"`
	InactiveCodes int            `json:"inactive_codes"`
	BySource      map[string]int `json:"by_source"`
	TopRewards    []RewardCount  `json:"top_rewards"`
}

// RewardCount pairs a reward description with how many codes grant it
type RewardCount struct {
	Reward string `json:"reward"`
	Count  int    `json:"count"`
}

// CommandStatistics aggregates command usage over a trailing window
type CommandStatistics struct {
	TotalCommands int            `json:"total_commands"`
	ByCommand     map[string]int `json:"by_command"`
	UniqueUsers   int            `json:"unique_users"`
	Days          int            `json:"days"`
}
