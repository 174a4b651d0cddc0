package events

import "time"

// Envelope is the shared event shape used across divan processes.
// Notification fan-out and future consumers read this contract.
type Envelope struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SourceService  string    `json:"source_service"`
	OccurredAtUTC  time.Time `json:"occurred_at_utc"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	PayloadVersion int       `json:"payload_version"`
	Payload        any       `json:"payload"`
}

// Topics for the in-process bus.
const (
	TopicUserNotifications  = "loyalty.user.notifications"
	TopicAdminNotifications = "loyalty.admin.notifications"
)

// NotificationPayload is the payload carried on the notification topics.
type NotificationPayload struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}
