package bot

import (
	"context"

	"github.com/shiftwatch/shift-backend/models"
	"github.com/sirupsen/logrus"
)

// NotifyNewCodes announces freshly discovered codes to every subscribed
// channel. A channel the bot can no longer post to is unsubscribed so it
// is not retried forever.
func (b *Bot) NotifyNewCodes(ctx context.Context, codes []models.ShiftCode) {
	if len(codes) == 0 || b.CodeService == nil {
		return
	}

	subscriptions, err := b.CodeService.GetActiveSubscriptions(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to load notification subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	logrus.WithFields(logrus.Fields{
		"new_codes":     len(codes),
		"subscriptions": len(subscriptions),
	}).Info("Announcing new codes to subscribed channels")

	for _, subscription := range subscriptions {
		failed := false
		for _, code := range codes {
			if _, err := b.Session.ChannelMessageSendEmbed(subscription.ChannelID, buildNewCodeEmbed(code)); err != nil {
				logrus.WithFields(logrus.Fields{
					"channel_id": subscription.ChannelID,
					"error":      err,
				}).Warn("Failed to announce code, unsubscribing channel")
				failed = true
				break
			}
		}

		if failed {
			if _, err := b.CodeService.RemoveSubscription(ctx, subscription.ChannelID); err != nil {
				logrus.WithFields(logrus.Fields{
					"channel_id": subscription.ChannelID,
					"error":      err,
				}).Error("Failed to unsubscribe unreachable channel")
			}
		}
	}
}
