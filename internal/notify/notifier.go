package notify

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"ticket-admission/models"
)

// Notifier delivers fire-and-forget messages to the real-time fan-out
// collaborator. Delivery failures are logged, never propagated: a lost
// notification degrades freshness, not correctness.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification)
}

type PubNubNotifier struct {
	client *pubnub.PubNub
}

func NewPubNubNotifier(client *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{client: client}
}

func (p *PubNubNotifier) Publish(ctx context.Context, n models.Notification) {
	channel := fmt.Sprintf("event-%s", n.EventID)
	if n.UserID != "" {
		channel = fmt.Sprintf("user-%s", n.UserID)
	}

	_, status, err := p.client.Publish().
		Channel(channel).
		Message(n).
		Execute()
	if err != nil || status.Error != nil {
		slog.Warn("notification publish failed",
			"type", n.Type, "channel", channel, "error", err)
	}
}

// NopNotifier drops everything. Used in tests and when PubNub keys are
// not configured.
type NopNotifier struct{}

func (NopNotifier) Publish(ctx context.Context, n models.Notification) {}
