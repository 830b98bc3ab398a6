package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWarningSent      EventType = "sla_warning_sent"
	EventNotificationSent EventType = "notification_sent"
)

// Event represents a notification event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NotificationSentPayload describes a delivered notification, consumed by
// best-effort side channels such as the push fanout.
type NotificationSentPayload struct {
	Recipients []string          `json:"recipients"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Data       map[string]string `json:"data,omitempty"`
}
