package delivery

import (
	"context"

	"github.com/leadforge/leadforge/internal/domain"
)

// Store persists delivery log entries and serves read-time aggregation.
// Implemented by the Postgres repository; faked in tests.
type Store interface {
	// InsertEntry records one send attempt. Called exactly once per
	// orchestrated send, success or not.
	InsertEntry(ctx context.Context, e *domain.DeliveryLogEntry) error

	// UpdateWebhookEvent overwrites status and webhook data on the entry
	// matched by provider message id. Returns false when no entry matched;
	// unmatched events are dropped, not queued.
	UpdateWebhookEvent(ctx context.Context, providerMessageID string, status domain.DeliveryStatus, rawEvent []byte) (bool, error)

	// CampaignStats scans a campaign's entries and tallies its counters.
	CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignStats, error)
}
