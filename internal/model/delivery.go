package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusBounced   DeliveryStatus = "bounced"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusOpened    DeliveryStatus = "opened"
	DeliveryStatusClicked   DeliveryStatus = "clicked"
)

// Terminal reports whether the status ends the delivery lifecycle. Opened and
// clicked are observations on an already-delivered message, so they count as
// terminal for campaign completion.
func (s DeliveryStatus) Terminal() bool {
	switch s {
	case DeliveryStatusDelivered, DeliveryStatusBounced, DeliveryStatusFailed,
		DeliveryStatusOpened, DeliveryStatusClicked:
		return true
	}
	return false
}

// Failed reports whether the delivery definitively did not reach the recipient.
func (s DeliveryStatus) Failed() bool {
	return s == DeliveryStatusBounced || s == DeliveryStatusFailed
}

// CanTransition returns whether moving from s to next is a legal step of the
// delivery state machine.
func (s DeliveryStatus) CanTransition(next DeliveryStatus) bool {
	switch s {
	case DeliveryStatusQueued:
		return next == DeliveryStatusSent || next == DeliveryStatusFailed
	case DeliveryStatusSent:
		return next == DeliveryStatusDelivered || next == DeliveryStatusBounced || next == DeliveryStatusFailed
	case DeliveryStatusDelivered:
		return next == DeliveryStatusOpened
	case DeliveryStatusOpened:
		return next == DeliveryStatusClicked
	}
	return false
}

// DeliveryRecord tracks one recipient send attempt within a campaign.
type DeliveryRecord struct {
	Base
	CampaignID        uuid.UUID      `db:"campaign_id" json:"campaign_id"`
	TenantID          uuid.UUID      `db:"tenant_id" json:"tenant_id"`
	Recipient         string         `db:"recipient" json:"recipient"`
	Status            DeliveryStatus `db:"status" json:"status"`
	ProviderMessageID *string        `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ErrorMessage      *string        `db:"error_message" json:"error_message,omitempty"`
	SentAt            *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt       *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
}

// DeliveryEvent is a provider callback payload.
type DeliveryEvent struct {
	ProviderMessageID string    `json:"provider_message_id" binding:"required"`
	Event             string    `json:"event" binding:"required,oneof=delivered bounced failed opened clicked"`
	OccurredAt        time.Time `json:"occurred_at"`
}
