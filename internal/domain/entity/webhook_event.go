package entity

import "time"

// Webhook outcomes
const (
	WebhookOutcomeApplied  = "applied"
	WebhookOutcomeConflict = "conflict"
	WebhookOutcomeNotFound = "not_found"
	WebhookOutcomeIgnored  = "ignored"
)

// ProcessedWebhookEvent records a processor event that has been handled.
// It is written in the same transaction as the state change it caused.
type ProcessedWebhookEvent struct {
	EventID     string    `gorm:"primaryKey;size:255" json:"event_id"`
	Type        string    `gorm:"size:100;not null" json:"type"`
	Outcome     string    `gorm:"size:20;not null" json:"outcome"`
	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
}

func (ProcessedWebhookEvent) TableName() string {
	return "processed_webhook_events"
}
