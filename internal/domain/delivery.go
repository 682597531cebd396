// Package domain holds the canonical data model for the delivery engine.
package domain

import "time"

// DeliveryStatus is the canonical lifecycle status of one message.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusQueued    DeliveryStatus = "queued"
	StatusDelivered DeliveryStatus = "delivered"
	StatusBounced   DeliveryStatus = "bounced"
	StatusFailed    DeliveryStatus = "failed"
)

// ProviderNone is recorded when every configured provider failed.
const ProviderNone = "none"

// MessageRequest is a fully formed outbound message, ready to send.
// Content composition happens upstream; the engine never mutates it.
type MessageRequest struct {
	To        []string          `json:"to"`
	FromEmail string            `json:"from_email"`
	FromName  string            `json:"from_name"`
	Subject   string            `json:"subject"`
	HTML      string            `json:"html"`
	Text      string            `json:"text,omitempty"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	// Metadata is forwarded opaquely to the provider for later correlation.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DeliveryResult is the outcome of one orchestrated send. Exactly one is
// produced per MessageRequest per orchestration call and never mutated after.
type DeliveryResult struct {
	Success    bool           `json:"success"`
	MessageID  string         `json:"message_id,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Error      string         `json:"error,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	Status     DeliveryStatus `json:"status"`
}

// DeliveryLogEntry is the persisted record of one send attempt. Status and
// WebhookData are the only fields later webhook events may overwrite,
// matched by ProviderMessageID.
type DeliveryLogEntry struct {
	ID                string
	CampaignID        *string
	Recipients        []string
	Provider          string
	ProviderMessageID string
	Status            DeliveryStatus
	StatusCode        int
	ErrorText         string
	Metadata          map[string]any
	WebhookData       []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BulkSendResult aggregates per-message outcomes of one bulk send.
// Results preserves input order.
type BulkSendResult struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Results []DeliveryResult `json:"results"`
}

// CampaignStats are derived counters for one campaign, computed by scanning
// the delivery log on demand. An entry can count toward both delivered and
// opened; opened/clicked come from the stored webhook event, not the status.
type CampaignStats struct {
	CampaignID string `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Delivered  int    `json:"delivered"`
	Bounced    int    `json:"bounced"`
	Failed     int    `json:"failed"`
	Opened     int    `json:"opened"`
	Clicked    int    `json:"clicked"`
}
