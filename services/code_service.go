package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shiftwatch/shift-backend/models"
	"github.com/sirupsen/logrus"
)

// CodeService persists scraped codes and command usage to PostgreSQL.
// All methods are safe to call concurrently; the database enforces
// uniqueness on the code string itself.
type CodeService struct {
	DB      *sql.DB
	utility *UtilityService
}

// NewCodeService creates a new code persistence service
func NewCodeService(db *sql.DB) *CodeService {
	return &CodeService{
		DB:      db,
		utility: NewUtilityService(),
	}
}

// UpsertCode inserts a scraped code or refreshes an existing row.
// Returns the row ID and whether the code was newly inserted. A re-scraped
// code bumps last_seen and times_scraped and is reactivated; an expiry date
// discovered later overwrites a previously unknown one.
func (s *CodeService) UpsertCode(ctx context.Context, code models.ShiftCode) (uuid.UUID, bool, error) {
	query := `
		INSERT INTO shift_codes (code, reward, expires, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			last_seen = CURRENT_TIMESTAMP,
			times_scraped = shift_codes.times_scraped + 1,
			is_active = TRUE,
			expires = COALESCE(EXCLUDED.expires, shift_codes.expires)
		RETURNING id, (times_scraped = 1) AS newly_inserted
	`

	var codeID uuid.UUID
	var isNew bool
	err := s.DB.QueryRowContext(ctx, query, code.Code, code.Reward, code.Expires, code.Source).Scan(&codeID, &isNew)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to upsert code %s: %w", code.Code, err)
	}

	historyQuery := `INSERT INTO code_history (code_id, source) VALUES ($1, $2)`
	if _, err := s.DB.ExecContext(ctx, historyQuery, codeID, code.Source); err != nil {
		logrus.WithFields(logrus.Fields{
			"code_id": codeID,
			"error":   err,
		}).Warn("Failed to record code history entry")
	}

	return codeID, isNew, nil
}

// SyncScrapedCodes upserts a batch of scraped codes and returns the subset
// that were not previously known
func (s *CodeService) SyncScrapedCodes(ctx context.Context, codes []models.ShiftCode) ([]models.ShiftCode, error) {
	var newCodes []models.ShiftCode

	for _, code := range codes {
		codeID, isNew, err := s.UpsertCode(ctx, code)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"code":  code.Code,
				"error": err,
			}).Error("Failed to persist scraped code")
			continue
		}
		if isNew {
			code.ID = codeID
			newCodes = append(newCodes, code)
		}
	}

	logrus.WithFields(logrus.Fields{
		"scraped_codes": len(codes),
		"new_codes":     len(newCodes),
	}).Info("Synced scraped codes to database")

	return newCodes, nil
}

// GetActiveCodes returns all active codes, newest first
func (s *CodeService) GetActiveCodes(ctx context.Context) ([]models.ShiftCode, error) {
	query := `
		SELECT id, code, reward, expires, source, first_seen, last_seen, is_active, times_scraped
		FROM shift_codes
		WHERE is_active = TRUE
		ORDER BY first_seen DESC
	`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active codes: %w", err)
	}
	defer rows.Close()

	return scanCodeRows(rows)
}

// GetCodesBySource returns all active codes from a single source
func (s *CodeService) GetCodesBySource(ctx context.Context, source string) ([]models.ShiftCode, error) {
	query := `
		SELECT id, code, reward, expires, source, first_seen, last_seen, is_active, times_scraped
		FROM shift_codes
		WHERE is_active = TRUE AND source = $1
		ORDER BY first_seen DESC
	`

	rows, err := s.DB.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query codes for source %s: %w", source, err)
	}
	defer rows.Close()

	return scanCodeRows(rows)
}

// SearchCodes finds active codes whose code or reward matches the query
func (s *CodeService) SearchCodes(ctx context.Context, searchTerm string) ([]models.ShiftCode, error) {
	query := `
		SELECT id, code, reward, expires, source, first_seen, last_seen, is_active, times_scraped
		FROM shift_codes
		WHERE is_active = TRUE AND (code ILIKE $1 OR reward ILIKE $1)
		ORDER BY first_seen DESC
	`

	rows, err := s.DB.QueryContext(ctx, query, "%"+searchTerm+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search codes: %w", err)
	}
	defer rows.Close()

	return scanCodeRows(rows)
}

// GetLatestCode returns the most recently discovered active code
func (s *CodeService) GetLatestCode(ctx context.Context) (*models.ShiftCode, error) {
	query := `
		SELECT id, code, reward, expires, source, first_seen, last_seen, is_active, times_scraped
		FROM shift_codes
		WHERE is_active = TRUE
		ORDER BY first_seen DESC
		LIMIT 1
	`

	var code models.ShiftCode
	err := s.DB.QueryRowContext(ctx, query).Scan(
		&code.ID, &code.Code, &code.Reward, &code.Expires, &code.Source,
		&code.FirstSeen, &code.LastSeen, &code.IsActive, &code.TimesScraped,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest code: %w", err)
	}

	return &code, nil
}

// MarkExpiredCodes deactivates active codes whose expiry date has passed.
// Expiry strings that cannot be parsed as dates are left active.
func (s *CodeService) MarkExpiredCodes(ctx context.Context) (int, error) {
	codes, err := s.GetActiveCodes(ctx)
	if err != nil {
		return 0, err
	}

	deactivated := 0
	for _, code := range codes {
		if !s.utility.IsCodeExpired(code.Expires, time.Now()) {
			continue
		}

		query := `UPDATE shift_codes SET is_active = FALSE WHERE id = $1`
		if _, err := s.DB.ExecContext(ctx, query, code.ID); err != nil {
			logrus.WithFields(logrus.Fields{
				"code":  code.Code,
				"error": err,
			}).Error("Failed to deactivate expired code")
			continue
		}
		deactivated++
	}

	if deactivated > 0 {
		logrus.WithField("deactivated_codes", deactivated).Info("Marked expired codes inactive")
	}

	return deactivated, nil
}

// GetStatistics aggregates counts across the codes table
func (s *CodeService) GetStatistics(ctx context.Context) (*models.CodeStatistics, error) {
	stats := &models.CodeStatistics{
		BySource: make(map[string]int),
	}

	countQuery := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active),
		       COUNT(*) FILTER (WHERE NOT is_active)
		FROM shift_codes
	`
	err := s.DB.QueryRowContext(ctx, countQuery).Scan(&stats.TotalCodes, &stats.ActiveCodes, &stats.InactiveCodes)
	if err != nil {
		return nil, fmt.Errorf("failed to query code counts: %w", err)
	}

	sourceQuery := `SELECT source, COUNT(*) FROM shift_codes WHERE is_active GROUP BY source`
	sourceRows, err := s.DB.QueryContext(ctx, sourceQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query source counts: %w", err)
	}
	defer sourceRows.Close()

	for sourceRows.Next() {
		var source string
		var count int
		if err := sourceRows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := sourceRows.Err(); err != nil {
		return nil, err
	}

	rewardQuery := `
		SELECT reward, COUNT(*) AS cnt
		FROM shift_codes
		WHERE is_active
		GROUP BY reward
		ORDER BY cnt DESC
		LIMIT 5
	`
	rewardRows, err := s.DB.QueryContext(ctx, rewardQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward counts: %w", err)
	}
	defer rewardRows.Close()

	for rewardRows.Next() {
		var rc models.RewardCount
		if err := rewardRows.Scan(&rc.Reward, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan reward count: %w", err)
		}
		stats.TopRewards = append(stats.TopRewards, rc)
	}
	if err := rewardRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// LogCommandUsage records one slash command invocation
func (s *CodeService) LogCommandUsage(ctx context.Context, usage models.CommandUsage) error {
	query := `INSERT INTO command_stats (command_name, user_id, guild_id) VALUES ($1, $2, $3)`
	if _, err := s.DB.ExecContext(ctx, query, usage.CommandName, usage.UserID, usage.GuildID); err != nil {
		return fmt.Errorf("failed to log command usage: %w", err)
	}
	return nil
}

// GetCommandStats aggregates command usage over the trailing number of days
func (s *CodeService) GetCommandStats(ctx context.Context, days int) (*models.CommandStatistics, error) {
	if days <= 0 {
		days = 7
	}

	stats := &models.CommandStatistics{
		ByCommand: make(map[string]int),
		Days:      days,
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	summaryQuery := `
		SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM command_stats
		WHERE used_at >= $1
	`
	err := s.DB.QueryRowContext(ctx, summaryQuery, cutoff).Scan(&stats.TotalCommands, &stats.UniqueUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to query command summary: %w", err)
	}

	commandQuery := `
		SELECT command_name, COUNT(*)
		FROM command_stats
		WHERE used_at >= $1
		GROUP BY command_name
	`
	rows, err := s.DB.QueryContext(ctx, commandQuery, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query per-command counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan command count: %w", err)
		}
		stats.ByCommand[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// AddSubscription enables code notifications for a channel.
// Returns false when the channel was already subscribed.
func (s *CodeService) AddSubscription(ctx context.Context, channelID, guildID string) (bool, error) {
	var wasActive bool
	checkQuery := `SELECT is_active FROM notification_subscriptions WHERE channel_id = $1`
	err := s.DB.QueryRowContext(ctx, checkQuery, channelID).Scan(&wasActive)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check subscription for channel %s: %w", channelID, err)
	}
	if err == nil && wasActive {
		return false, nil
	}

	upsertQuery := `
		INSERT INTO notification_subscriptions (channel_id, guild_id)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET
			is_active = TRUE,
			guild_id = EXCLUDED.guild_id
	`
	if _, err := s.DB.ExecContext(ctx, upsertQuery, channelID, guildID); err != nil {
		return false, fmt.Errorf("failed to add subscription for channel %s: %w", channelID, err)
	}

	return true, nil
}

// RemoveSubscription disables code notifications for a channel.
// Returns false when the channel had no active subscription.
func (s *CodeService) RemoveSubscription(ctx context.Context, channelID string) (bool, error) {
	query := `
		UPDATE notification_subscriptions
		SET is_active = FALSE
		WHERE channel_id = $1 AND is_active = TRUE
	`

	result, err := s.DB.ExecContext(ctx, query, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to remove subscription for channel %s: %w", channelID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// GetActiveSubscriptions returns every channel currently subscribed to
// new-code notifications
func (s *CodeService) GetActiveSubscriptions(ctx context.Context) ([]models.NotificationSubscription, error) {
	query := `
		SELECT id, channel_id, guild_id, subscribed_at, is_active
		FROM notification_subscriptions
		WHERE is_active = TRUE
		ORDER BY subscribed_at
	`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []models.NotificationSubscription
	for rows.Next() {
		var sub models.NotificationSubscription
		if err := rows.Scan(&sub.ID, &sub.ChannelID, &sub.GuildID, &sub.SubscribedAt, &sub.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subscriptions = append(subscriptions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return subscriptions, nil
}

// scanCodeRows converts a shift_codes result set into models
func scanCodeRows(rows *sql.Rows) ([]models.ShiftCode, error) {
	var codes []models.ShiftCode
	for rows.Next() {
		var code models.ShiftCode
		err := rows.Scan(
			&code.ID, &code.Code, &code.Reward, &code.Expires, &code.Source,
			&code.FirstSeen, &code.LastSeen, &code.IsActive, &code.TimesScraped,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan code row: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return codes, nil
}
