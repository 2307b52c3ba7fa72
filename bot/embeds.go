package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shiftwatch/shift-backend/models"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/shiftwatch/shift-backend/shared"
)

const (
	embedColorGold   = 0xF5C518
	embedColorOrange = 0xE8590C

	codesPerEmbed = 10
	// Discord caps a single message at 10 embeds
	maxCodeEmbeds = 10
)

var embedUtility = services.NewUtilityService()

// formatExpiry renders an expiry for display. Parseable dates become Discord
// relative timestamps so every reader sees their own timezone.
func formatExpiry(expires *string) string {
	if expires == nil || strings.TrimSpace(*expires) == "" {
		return "Unknown"
	}

	if parsed := embedUtility.ParseExpiryDate(*expires); parsed != nil {
		return fmt.Sprintf("<t:%d:R>", parsed.Unix())
	}
	return *expires
}

// codeFieldValue renders one code's details for an embed field
func codeFieldValue(code models.ShiftCode) string {
	return fmt.Sprintf("**Reward:** %s\n**Expires:** %s\n**Source:** %s",
		code.Reward, formatExpiry(code.Expires), code.Source)
}

// buildCodeListEmbeds chunks the code list into embeds. Codes beyond what a
// single message can hold are summarized in the final footer.
func buildCodeListEmbeds(codes []models.ShiftCode, source string) []*discordgo.MessageEmbed {
	title := "Active Borderlands 4 SHiFT Codes"
	if source != "" {
		title = fmt.Sprintf("Active SHiFT Codes from %s", source)
	}

	var embeds []*discordgo.MessageEmbed
	for start := 0; start < len(codes) && len(embeds) < maxCodeEmbeds; start += codesPerEmbed {
		end := start + codesPerEmbed
		if end > len(codes) {
			end = len(codes)
		}

		embed := &discordgo.MessageEmbed{
			Color: embedColorGold,
		}
		if start == 0 {
			embed.Title = title
			embed.Description = fmt.Sprintf("%d active codes. Redeem at https://shift.gearboxsoftware.com/rewards or in-game.", len(codes))
		}

		for _, code := range codes[start:end] {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("`%s`", code.Code),
				Value: codeFieldValue(code),
			})
		}
		embeds = append(embeds, embed)
	}

	shown := len(embeds) * codesPerEmbed
	if shown > len(codes) {
		shown = len(codes)
	}
	last := embeds[len(embeds)-1]
	last.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Showing %d of %d codes", shown, len(codes)),
	}
	last.Timestamp = time.Now().Format(time.RFC3339)

	return embeds
}

// buildSingleCodeEmbed renders one code prominently
func buildSingleCodeEmbed(code *models.ShiftCode, title string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Color:       embedColorOrange,
		Description: fmt.Sprintf("```%s```", code.Code),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reward", Value: code.Reward, Inline: true},
			{Name: "Expires", Value: formatExpiry(code.Expires), Inline: true},
			{Name: "Source", Value: code.Source, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Redeem at shift.gearboxsoftware.com/rewards",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// buildNewCodeEmbed announces a freshly discovered code to subscribed channels
func buildNewCodeEmbed(code models.ShiftCode) *discordgo.MessageEmbed {
	embed := buildSingleCodeEmbed(&code, "New SHiFT Code Found!")
	embed.Color = embedColorGold
	return embed
}

func buildHelpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "SHiFT Code Bot",
		Color: embedColorGold,
		Description: "Tracks Borderlands 4 SHiFT codes from MentalMars and the community tracker.\n" +
			"Redeem codes at https://shift.gearboxsoftware.com/rewards or in-game under Shift.",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "/codes", Value: "List all active codes, optionally filtered by source"},
			{Name: "/latest", Value: "Show the most recently discovered code"},
			{Name: "/refresh", Value: "Force a re-scrape of all sources (Manage Server)"},
			{Name: "/stats", Value: "Code counts, scrape health and command usage"},
			{Name: "/subscribe", Value: "Announce new codes in this channel (Manage Channels)"},
			{Name: "/unsubscribe", Value: "Stop announcements in this channel (Manage Channels)"},
		},
	}
}

func buildStatsEmbed(codeStats *models.CodeStatistics, commandStats *models.CommandStatistics, metrics *shared.ScrapeMetrics, uptime time.Duration) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Bot Statistics",
		Color: embedColorOrange,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Uptime: %s", uptime.Round(time.Second)),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if codeStats != nil {
		var sourceLines []string
		for source, count := range codeStats.BySource {
			sourceLines = append(sourceLines, fmt.Sprintf("%s: %d", source, count))
		}
		value := fmt.Sprintf("Total: %d\nActive: %d\nInactive: %d", codeStats.TotalCodes, codeStats.ActiveCodes, codeStats.InactiveCodes)
		if len(sourceLines) > 0 {
			value += "\n" + strings.Join(sourceLines, "\n")
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Codes", Value: value, Inline: true,
		})
	}

	if commandStats != nil {
		value := fmt.Sprintf("Last %d days: %d commands\nUnique users: %d", commandStats.Days, commandStats.TotalCommands, commandStats.UniqueUsers)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Usage", Value: value, Inline: true,
		})
	}

	if metrics != nil {
		var lines []string
		for source, snapshot := range metrics.Snapshot() {
			lines = append(lines, fmt.Sprintf("%s: %d/%d ok, %d codes",
				source, snapshot.Successes, snapshot.Attempts, snapshot.CodesExtracted))
		}
		if len(lines) > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "Scrapes", Value: strings.Join(lines, "\n"), Inline: false,
			})
		}
	}

	if len(embed.Fields) == 0 {
		embed.Description = "No statistics available yet."
	}

	return embed
}
