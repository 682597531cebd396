// Package webhook converts provider-specific asynchronous event payloads
// into one canonical event shape and applies them to the delivery log.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/delivery"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/logger"
)

// Event is the canonical delivery event extracted from any provider payload.
type Event struct {
	MessageID string    `json:"message_id"`
	Event     string    `json:"event"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// StatusForEvent maps a provider's raw event name to the canonical delivery
// status. Engagement events (open, click, unsubscribe, spam report) imply
// the message reached the inbox, so they map to delivered; anything
// unrecognized falls back to sent.
func StatusForEvent(event string) domain.DeliveryStatus {
	switch strings.ToLower(event) {
	case "delivered", "delivery":
		return domain.StatusDelivered
	case "bounce", "bounced":
		return domain.StatusBounced
	case "dropped":
		return domain.StatusFailed
	case "deferred":
		return domain.StatusQueued
	case "open", "click", "unsubscribe", "spamreport":
		return domain.StatusDelivered
	default:
		return domain.StatusSent
	}
}

// Normalizer applies provider webhook payloads to the delivery log.
type Normalizer struct {
	store delivery.Store
}

// NewNormalizer creates a webhook normalizer over the given store.
func NewNormalizer(store delivery.Store) *Normalizer {
	return &Normalizer{store: store}
}

// HandleEvent parses one raw webhook payload for the named provider and
// applies every event it contains. Unknown providers are logged and
// dropped. Events whose message id matches no delivery log entry are
// silently discarded; last write wins for entries hit more than once.
func (n *Normalizer) HandleEvent(ctx context.Context, providerName string, payload []byte) error {
	var (
		events []Event
		err    error
	)

	switch strings.ToLower(providerName) {
	case "sendgrid":
		events, err = parseSendGrid(payload)
	case "mailgun":
		events, err = parseMailgun(payload)
	case "ses":
		events, err = parseSES(payload)
	case "sparkpost":
		events, err = parseSparkPost(payload)
	default:
		logger.Warn("webhook from unknown provider dropped", "provider", providerName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse %s webhook: %w", providerName, err)
	}

	for _, ev := range events {
		if ev.MessageID == "" {
			continue
		}
		n.apply(ctx, providerName, ev)
	}
	return nil
}

func (n *Normalizer) apply(ctx context.Context, providerName string, ev Event) {
	raw, _ := json.Marshal(ev)
	matched, err := n.store.UpdateWebhookEvent(ctx, ev.MessageID, StatusForEvent(ev.Event), raw)
	if err != nil {
		logger.Error("webhook update failed",
			"provider", providerName,
			"message_id", ev.MessageID,
			"event", ev.Event,
			"err", err.Error(),
		)
		return
	}
	if !matched {
		logger.Debug("webhook event for unknown message id dropped",
			"provider", providerName,
			"message_id", ev.MessageID,
			"event", ev.Event,
		)
		return
	}
	logger.Info("delivery status updated",
		"provider", providerName,
		"message_id", ev.MessageID,
		"event", ev.Event,
	)
}

// parseSendGrid handles SendGrid's event webhook: a JSON array of discrete
// events, each mapped individually.
func parseSendGrid(payload []byte) ([]Event, error) {
	var raw []struct {
		SGMessageID string `json:"sg_message_id"`
		Event       string `json:"event"`
		Email       string `json:"email"`
		Timestamp   int64  `json:"timestamp"`
		Reason      string `json:"reason"`
		URL         string `json:"url"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, Event{
			MessageID: e.SGMessageID,
			Event:     e.Event,
			Email:     e.Email,
			Timestamp: time.Unix(e.Timestamp, 0).UTC(),
			Reason:    e.Reason,
			URL:       e.URL,
		})
	}
	return events, nil
}

// parseMailgun handles Mailgun's webhook: a single event object with
// hyphenated field names.
func parseMailgun(payload []byte) ([]Event, error) {
	var raw struct {
		MessageID string  `json:"message-id"`
		Event     string  `json:"event"`
		Recipient string  `json:"recipient"`
		Timestamp float64 `json:"timestamp"`
		Reason    string  `json:"reason"`
		URL       string  `json:"url"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	return []Event{{
		MessageID: strings.Trim(raw.MessageID, "<>"),
		Event:     raw.Event,
		Email:     raw.Recipient,
		Timestamp: time.Unix(int64(raw.Timestamp), 0).UTC(),
		Reason:    raw.Reason,
		URL:       raw.URL,
	}}, nil
}

// snsEnvelope is the outer SNS notification wrapper; its Message field is
// itself a JSON-encoded string.
type snsEnvelope struct {
	Type         string `json:"Type"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

// parseSES handles AWS SES events delivered through SNS: the envelope's
// Message field is parsed as a nested JSON document with mail.messageId as
// the correlation key.
func parseSES(payload []byte) ([]Event, error) {
	var envelope snsEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	if envelope.Type == "SubscriptionConfirmation" {
		// Confirmation is handled by the HTTP layer; nothing to normalize.
		return nil, nil
	}

	var inner struct {
		EventType        string `json:"eventType"`
		NotificationType string `json:"notificationType"`
		Mail             struct {
			MessageID   string   `json:"messageId"`
			Destination []string `json:"destination"`
			Timestamp   string   `json:"timestamp"`
		} `json:"mail"`
		Bounce struct {
			BouncedRecipients []struct {
				DiagnosticCode string `json:"diagnosticCode"`
			} `json:"bouncedRecipients"`
		} `json:"bounce"`
	}
	if err := json.Unmarshal([]byte(envelope.Message), &inner); err != nil {
		return nil, err
	}

	eventType := inner.EventType
	if eventType == "" {
		eventType = inner.NotificationType
	}

	ev := Event{
		MessageID: inner.Mail.MessageID,
		Event:     strings.ToLower(eventType),
	}
	if len(inner.Mail.Destination) > 0 {
		ev.Email = inner.Mail.Destination[0]
	}
	if ts, err := time.Parse(time.RFC3339, inner.Mail.Timestamp); err == nil {
		ev.Timestamp = ts
	} else {
		ev.Timestamp = time.Now().UTC()
	}
	if len(inner.Bounce.BouncedRecipients) > 0 {
		ev.Reason = inner.Bounce.BouncedRecipients[0].DiagnosticCode
	}
	return []Event{ev}, nil
}

// parseSparkPost handles SparkPost's webhook batches: each element wraps
// its event data in an msys object keyed by event category.
func parseSparkPost(payload []byte) ([]Event, error) {
	var raw []struct {
		MSys map[string]struct {
			Type          string `json:"type"`
			MessageID     string `json:"message_id"`
			RcptTo        string `json:"rcpt_to"`
			Timestamp     string `json:"timestamp"`
			Reason        string `json:"reason"`
			TargetLinkURL string `json:"target_link_url"`
		} `json:"msys"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	var events []Event
	for _, wrapper := range raw {
		for category, data := range wrapper.MSys {
			eventType := data.Type
			if category == "unsubscribe_event" {
				eventType = "unsubscribe"
			}
			ev := Event{
				MessageID: data.MessageID,
				Event:     eventType,
				Email:     data.RcptTo,
				Reason:    data.Reason,
				URL:       data.TargetLinkURL,
			}
			if ts, err := time.Parse(time.RFC3339, data.Timestamp); err == nil {
				ev.Timestamp = ts
			} else {
				ev.Timestamp = time.Now().UTC()
			}
			events = append(events, ev)
		}
	}
	return events, nil
}
