package messaging

import (
	"context"
	"time"

	"divan/internal/shared/events"

	"github.com/google/uuid"
)

// NotificationPublisher implements the engine's Notifier port by publishing
// notification envelopes onto the bus. Delivery stays best-effort: the
// subscriber side decides what a failed send means.
type NotificationPublisher struct {
	Bus           *Bus
	SourceService string
}

func (p NotificationPublisher) Send(ctx context.Context, userID string, text string) error {
	return p.Bus.Publish(ctx, events.TopicUserNotifications, events.Envelope{
		EventID:        uuid.NewString(),
		EventType:      "loyalty.notification.requested",
		SourceService:  p.SourceService,
		OccurredAtUTC:  time.Now().UTC(),
		EntityType:     "user",
		EntityID:       userID,
		PayloadVersion: 1,
		Payload: events.NotificationPayload{
			UserID: userID,
			Text:   text,
		},
	})
}
