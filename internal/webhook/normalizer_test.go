package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/domain"
)

type recordedUpdate struct {
	MessageID string
	Status    domain.DeliveryStatus
	Raw       []byte
}

// recordingStore captures UpdateWebhookEvent calls; only message ids in
// known are reported as matched.
type recordingStore struct {
	known   map[string]bool
	updates []recordedUpdate
}

func newRecordingStore(knownIDs ...string) *recordingStore {
	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}
	return &recordingStore{known: known}
}

func (s *recordingStore) InsertEntry(context.Context, *domain.DeliveryLogEntry) error { return nil }

func (s *recordingStore) UpdateWebhookEvent(_ context.Context, providerMessageID string, status domain.DeliveryStatus, rawEvent []byte) (bool, error) {
	s.updates = append(s.updates, recordedUpdate{MessageID: providerMessageID, Status: status, Raw: rawEvent})
	return s.known[providerMessageID], nil
}

func (s *recordingStore) CampaignStats(_ context.Context, campaignID string) (*domain.CampaignStats, error) {
	return &domain.CampaignStats{CampaignID: campaignID}, nil
}

func TestStatusForEvent(t *testing.T) {
	tests := []struct {
		event string
		want  domain.DeliveryStatus
	}{
		{"delivered", domain.StatusDelivered},
		{"delivery", domain.StatusDelivered},
		{"bounce", domain.StatusBounced},
		{"bounced", domain.StatusBounced},
		{"dropped", domain.StatusFailed},
		{"deferred", domain.StatusQueued},
		{"open", domain.StatusDelivered},
		{"click", domain.StatusDelivered},
		{"unsubscribe", domain.StatusDelivered},
		{"spamreport", domain.StatusDelivered},
		{"Delivered", domain.StatusDelivered},
		{"processed", domain.StatusSent},
		{"", domain.StatusSent},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForEvent(tt.event))
		})
	}
}

func TestHandleEventSendGrid(t *testing.T) {
	store := newRecordingStore("sg_1", "sg_2")
	n := NewNormalizer(store)

	payload := []byte(`[
		{"sg_message_id": "sg_1", "event": "delivered", "email": "a@example.com", "timestamp": 1735689600},
		{"sg_message_id": "sg_2", "event": "bounce", "email": "b@example.com", "timestamp": 1735689700, "reason": "550 mailbox unavailable"}
	]`)

	require.NoError(t, n.HandleEvent(context.Background(), "sendgrid", payload))
	require.Len(t, store.updates, 2)

	assert.Equal(t, "sg_1", store.updates[0].MessageID)
	assert.Equal(t, domain.StatusDelivered, store.updates[0].Status)
	assert.Equal(t, "sg_2", store.updates[1].MessageID)
	assert.Equal(t, domain.StatusBounced, store.updates[1].Status)

	var stored Event
	require.NoError(t, json.Unmarshal(store.updates[1].Raw, &stored))
	assert.Equal(t, "bounce", stored.Event)
	assert.Equal(t, "550 mailbox unavailable", stored.Reason)
	assert.Equal(t, "b@example.com", stored.Email)
}

func TestHandleEventMailgun(t *testing.T) {
	store := newRecordingStore("mg_123")
	n := NewNormalizer(store)

	payload := []byte(`{
		"message-id": "<mg_123>",
		"event": "delivered",
		"recipient": "a@example.com",
		"timestamp": 1735689600.5
	}`)

	require.NoError(t, n.HandleEvent(context.Background(), "mailgun", payload))
	require.Len(t, store.updates, 1)

	assert.Equal(t, "mg_123", store.updates[0].MessageID, "angle brackets must be stripped")
	assert.Equal(t, domain.StatusDelivered, store.updates[0].Status)
}

func TestHandleEventSES(t *testing.T) {
	store := newRecordingStore("ses_abc")
	n := NewNormalizer(store)

	inner := `{"eventType":"Bounce","mail":{"messageId":"ses_abc","destination":["a@example.com"],"timestamp":"2025-01-01T00:00:00Z"},"bounce":{"bouncedRecipients":[{"diagnosticCode":"smtp; 550 user unknown"}]}}`
	envelope, err := json.Marshal(map[string]string{
		"Type":    "Notification",
		"Message": inner,
	})
	require.NoError(t, err)

	require.NoError(t, n.HandleEvent(context.Background(), "ses", envelope))
	require.Len(t, store.updates, 1)

	assert.Equal(t, "ses_abc", store.updates[0].MessageID)
	assert.Equal(t, domain.StatusBounced, store.updates[0].Status)

	var stored Event
	require.NoError(t, json.Unmarshal(store.updates[0].Raw, &stored))
	assert.Equal(t, "bounce", stored.Event)
	assert.Equal(t, "a@example.com", stored.Email)
	assert.Equal(t, "smtp; 550 user unknown", stored.Reason)
}

func TestHandleEventSESSubscriptionConfirmation(t *testing.T) {
	store := newRecordingStore()
	n := NewNormalizer(store)

	payload := []byte(`{"Type":"SubscriptionConfirmation","SubscribeURL":"https://sns.example.com/confirm"}`)

	require.NoError(t, n.HandleEvent(context.Background(), "ses", payload))
	assert.Empty(t, store.updates)
}

func TestHandleEventSparkPost(t *testing.T) {
	store := newRecordingStore("sp_1", "sp_2")
	n := NewNormalizer(store)

	payload := []byte(`[
		{"msys": {"message_event": {"type": "delivery", "message_id": "sp_1", "rcpt_to": "a@example.com", "timestamp": "2025-01-01T00:00:00Z"}}},
		{"msys": {"unsubscribe_event": {"type": "list_unsubscribe", "message_id": "sp_2", "rcpt_to": "b@example.com", "timestamp": "2025-01-01T00:01:00Z"}}}
	]`)

	require.NoError(t, n.HandleEvent(context.Background(), "sparkpost", payload))
	require.Len(t, store.updates, 2)

	assert.Equal(t, "sp_1", store.updates[0].MessageID)
	assert.Equal(t, domain.StatusDelivered, store.updates[0].Status)
	assert.Equal(t, "sp_2", store.updates[1].MessageID)
	assert.Equal(t, domain.StatusDelivered, store.updates[1].Status, "unsubscribe implies the message was delivered")
}

func TestHandleEventUnknownProvider(t *testing.T) {
	store := newRecordingStore()
	n := NewNormalizer(store)

	err := n.HandleEvent(context.Background(), "postmark", []byte(`{"event":"delivered"}`))

	require.NoError(t, err, "unknown providers are dropped, not errors")
	assert.Empty(t, store.updates)
}

func TestHandleEventMalformedPayload(t *testing.T) {
	store := newRecordingStore()
	n := NewNormalizer(store)

	err := n.HandleEvent(context.Background(), "sendgrid", []byte(`not json`))

	require.Error(t, err)
	assert.Empty(t, store.updates)
}

func TestHandleEventUnmatchedMessageID(t *testing.T) {
	store := newRecordingStore() // nothing known
	n := NewNormalizer(store)

	payload := []byte(`[{"sg_message_id": "ghost", "event": "delivered", "timestamp": 1735689600}]`)

	require.NoError(t, n.HandleEvent(context.Background(), "sendgrid", payload))
	require.Len(t, store.updates, 1, "the store is still consulted; the miss is just logged")
}

func TestHandleEventMissingMessageIDSkipped(t *testing.T) {
	store := newRecordingStore()
	n := NewNormalizer(store)

	payload := []byte(`[{"event": "delivered", "timestamp": 1735689600}]`)

	require.NoError(t, n.HandleEvent(context.Background(), "sendgrid", payload))
	assert.Empty(t, store.updates)
}

func TestHandleEventLastWriteWins(t *testing.T) {
	store := newRecordingStore("sg_1")
	n := NewNormalizer(store)

	first := []byte(`[{"sg_message_id": "sg_1", "event": "delivered", "timestamp": 1735689600}]`)
	second := []byte(`[{"sg_message_id": "sg_1", "event": "bounce", "timestamp": 1735689700}]`)

	require.NoError(t, n.HandleEvent(context.Background(), "sendgrid", first))
	require.NoError(t, n.HandleEvent(context.Background(), "sendgrid", second))

	require.Len(t, store.updates, 2)
	assert.Equal(t, domain.StatusBounced, store.updates[1].Status, "the later event overwrites the earlier status")
}
