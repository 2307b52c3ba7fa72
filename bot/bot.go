package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/shiftwatch/shift-backend/shared"
	"github.com/sirupsen/logrus"
)

// Bot wraps the Discord session and wires slash commands to the code
// services. CodeService is nil when no database is configured; commands that
// need persistence degrade gracefully in that case.
type Bot struct {
	Session     *discordgo.Session
	Aggregator  *services.CodeAggregatorService
	CodeService *services.CodeService
	Metrics     *shared.ScrapeMetrics

	testGuildID        string
	registeredCommands []*discordgo.ApplicationCommand
	startTime          time.Time
}

// NewBot creates a bot from a raw token. The session is not opened yet.
func NewBot(token string, aggregator *services.CodeAggregatorService, codeService *services.CodeService, metrics *shared.ScrapeMetrics, testGuildID string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		Session:     session,
		Aggregator:  aggregator,
		CodeService: codeService,
		Metrics:     metrics,
		testGuildID: testGuildID,
	}, nil
}

// Start opens the gateway connection and registers slash commands. With
// TEST_GUILD_ID set, commands are registered guild-scoped so they appear
// instantly during development; otherwise they are registered globally.
func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logrus.WithFields(logrus.Fields{
			"username": s.State.User.Username,
			"guilds":   len(r.Guilds),
		}).Info("Discord bot connected")
	})
	b.Session.AddHandler(b.handleInteraction)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord gateway connection: %w", err)
	}
	b.startTime = time.Now()

	scope := "global"
	if b.testGuildID != "" {
		scope = "guild " + b.testGuildID
	}
	logrus.WithField("scope", scope).Info("Registering slash commands")

	for _, definition := range commandDefinitions() {
		registered, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, b.testGuildID, definition)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"command": definition.Name,
				"error":   err,
			}).Error("Failed to register slash command")
			continue
		}
		b.registeredCommands = append(b.registeredCommands, registered)
	}

	logrus.WithField("registered_commands", len(b.registeredCommands)).Info("Slash command registration complete")
	return nil
}

// Stop removes guild-scoped test commands and closes the gateway connection.
// Global commands are left registered so they survive restarts.
func (b *Bot) Stop() {
	if b.testGuildID != "" {
		for _, command := range b.registeredCommands {
			if err := b.Session.ApplicationCommandDelete(b.Session.State.User.ID, b.testGuildID, command.ID); err != nil {
				logrus.WithFields(logrus.Fields{
					"command": command.Name,
					"error":   err,
				}).Warn("Failed to delete test command")
			}
		}
	}

	if err := b.Session.Close(); err != nil {
		logrus.WithError(err).Warn("Error closing Discord session")
	} else {
		logrus.Info("Discord bot disconnected")
	}
}

// Uptime reports how long the gateway connection has been open
func (b *Bot) Uptime() time.Duration {
	if b.startTime.IsZero() {
		return 0
	}
	return time.Since(b.startTime)
}
