package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shiftwatch/shift-backend/models"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 3 * time.Minute

// commandDefinitions describes every slash command the bot registers
func commandDefinitions() []*discordgo.ApplicationCommand {
	manageChannels := int64(discordgo.PermissionManageChannels)
	manageGuild := int64(discordgo.PermissionManageServer)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "codes",
			Description: "List all currently active Borderlands 4 SHiFT codes",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "source",
					Description: "Only show codes from one source",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "MentalMars", Value: services.SourceMentalMars},
						{Name: "Community Tracker", Value: services.SourceTracker},
					},
				},
			},
		},
		{
			Name:        "latest",
			Description: "Show the most recently discovered SHiFT code",
		},
		{
			Name:                     "refresh",
			Description:              "Force a re-scrape of all code sources",
			DefaultMemberPermissions: &manageGuild,
		},
		{
			Name:        "help",
			Description: "How to use the bot and redeem SHiFT codes",
		},
		{
			Name:        "stats",
			Description: "Code counts, scrape health and command usage",
		},
		{
			Name:                     "subscribe",
			Description:              "Announce new SHiFT codes in this channel",
			DefaultMemberPermissions: &manageChannels,
		},
		{
			Name:                     "unsubscribe",
			Description:              "Stop announcing new SHiFT codes in this channel",
			DefaultMemberPermissions: &manageChannels,
		},
	}
}

// handleInteraction dispatches slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name
	b.logCommand(commandName, i)

	// Scrapes and database reads can exceed Discord's 3 second response
	// window, so every command acknowledges first and edits the response.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"command": commandName,
			"error":   err,
		}).Error("Failed to acknowledge interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch commandName {
	case "codes":
		b.handleCodes(ctx, s, i)
	case "latest":
		b.handleLatest(ctx, s, i)
	case "refresh":
		b.handleRefresh(ctx, s, i)
	case "help":
		b.respondEmbeds(s, i, []*discordgo.MessageEmbed{buildHelpEmbed()})
	case "stats":
		b.handleStats(ctx, s, i)
	case "subscribe":
		b.handleSubscribe(ctx, s, i)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, s, i)
	default:
		b.respondText(s, i, "Unknown command.")
	}
}

// logCommand records usage for the stats command; failures are non-fatal
func (b *Bot) logCommand(commandName string, i *discordgo.InteractionCreate) {
	fields := logrus.Fields{"command": commandName}
	if i.Member != nil && i.Member.User != nil {
		fields["user_id"] = i.Member.User.ID
	}
	logrus.WithFields(fields).Info("Slash command invoked")

	if b.CodeService == nil {
		return
	}

	usage := models.CommandUsage{CommandName: commandName}
	if i.Member != nil && i.Member.User != nil {
		usage.UserID = i.Member.User.ID
	} else if i.User != nil {
		usage.UserID = i.User.ID
	}
	if i.GuildID != "" {
		guildID := i.GuildID
		usage.GuildID = &guildID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.CodeService.LogCommandUsage(ctx, usage); err != nil {
			logrus.WithError(err).Warn("Failed to record command usage")
		}
	}()
}

func (b *Bot) handleCodes(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	var source string
	for _, option := range i.ApplicationCommandData().Options {
		if option.Name == "source" {
			source = option.StringValue()
		}
	}

	var codes []models.ShiftCode
	var err error
	if source != "" {
		codes, err = b.Aggregator.GetCodesBySource(ctx, source)
	} else {
		codes, err = b.Aggregator.GetCodes(ctx, false)
	}
	if err != nil {
		b.respondText(s, i, "Could not fetch codes right now, try again in a bit.")
		return
	}

	if len(codes) == 0 {
		b.respondText(s, i, "No active SHiFT codes are known right now.")
		return
	}

	b.respondEmbeds(s, i, buildCodeListEmbeds(codes, source))
}

func (b *Bot) handleLatest(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	code, err := b.Aggregator.LatestCode(ctx)
	if err != nil {
		b.respondText(s, i, "Could not fetch the latest code right now, try again in a bit.")
		return
	}
	if code == nil {
		b.respondText(s, i, "No active SHiFT codes are known right now.")
		return
	}

	b.respondEmbeds(s, i, []*discordgo.MessageEmbed{buildSingleCodeEmbed(code, "Latest SHiFT Code")})
}

func (b *Bot) handleRefresh(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !memberHasPermission(i, discordgo.PermissionManageServer|discordgo.PermissionAdministrator) {
		b.respondText(s, i, "You need the Manage Server permission to force a refresh.")
		return
	}

	startTime := time.Now()
	allCodes, newCodes, err := b.Aggregator.Refresh(ctx)
	if err != nil {
		b.respondText(s, i, "Refresh failed, sources may be unreachable.")
		return
	}

	b.respondText(s, i, fmt.Sprintf("Refresh complete in %.1fs: %d active codes, %d new.",
		time.Since(startTime).Seconds(), len(allCodes), len(newCodes)))
}

func (b *Bot) handleStats(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	var codeStats *models.CodeStatistics
	var commandStats *models.CommandStatistics

	if b.CodeService != nil {
		var err error
		codeStats, err = b.CodeService.GetStatistics(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to load code statistics")
		}
		commandStats, err = b.CodeService.GetCommandStats(ctx, 7)
		if err != nil {
			logrus.WithError(err).Warn("Failed to load command statistics")
		}
	}

	if codeStats == nil {
		// Memory-only fallback built from the current code set
		codes, err := b.Aggregator.GetCodes(ctx, false)
		if err == nil {
			codeStats = &models.CodeStatistics{
				TotalCodes:  len(codes),
				ActiveCodes: len(codes),
				BySource:    make(map[string]int),
			}
			for _, code := range codes {
				codeStats.BySource[code.Source]++
			}
		}
	}

	b.respondEmbeds(s, i, []*discordgo.MessageEmbed{buildStatsEmbed(codeStats, commandStats, b.Metrics, b.Uptime())})
}

func (b *Bot) handleSubscribe(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !memberHasPermission(i, discordgo.PermissionManageChannels) {
		b.respondText(s, i, "You need the Manage Channels permission to manage subscriptions.")
		return
	}
	if b.CodeService == nil {
		b.respondText(s, i, "Subscriptions need a database and none is configured.")
		return
	}
	if i.GuildID == "" {
		b.respondText(s, i, "Subscriptions only work in server channels.")
		return
	}

	added, err := b.CodeService.AddSubscription(ctx, i.ChannelID, i.GuildID)
	if err != nil {
		b.respondText(s, i, "Could not save the subscription, try again later.")
		return
	}
	if !added {
		b.respondText(s, i, "This channel is already subscribed to new code announcements.")
		return
	}
	b.respondText(s, i, "Subscribed. New SHiFT codes will be announced in this channel.")
}

func (b *Bot) handleUnsubscribe(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !memberHasPermission(i, discordgo.PermissionManageChannels) {
		b.respondText(s, i, "You need the Manage Channels permission to manage subscriptions.")
		return
	}
	if b.CodeService == nil {
		b.respondText(s, i, "Subscriptions need a database and none is configured.")
		return
	}

	removed, err := b.CodeService.RemoveSubscription(ctx, i.ChannelID)
	if err != nil {
		b.respondText(s, i, "Could not remove the subscription, try again later.")
		return
	}
	if !removed {
		b.respondText(s, i, "This channel was not subscribed.")
		return
	}
	b.respondText(s, i, "Unsubscribed. New codes will no longer be announced here.")
}

// memberHasPermission checks the invoking member's effective permissions.
// Direct messages have no member and fail the check.
func memberHasPermission(i *discordgo.InteractionCreate, permission int64) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&permission != 0
}

func (b *Bot) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to edit interaction response")
	}
}

func (b *Bot) respondEmbeds(s *discordgo.Session, i *discordgo.InteractionCreate, embeds []*discordgo.MessageEmbed) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to edit interaction response")
	}
}
