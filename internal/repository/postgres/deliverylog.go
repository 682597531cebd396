// Package postgres implements the delivery log store against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/lib/pq"
)

// DeliveryLogRepo implements delivery.Store against PostgreSQL.
type DeliveryLogRepo struct{ db *sql.DB }

// NewDeliveryLogRepo creates a Postgres-backed delivery log repository.
func NewDeliveryLogRepo(db *sql.DB) *DeliveryLogRepo { return &DeliveryLogRepo{db: db} }

// InsertEntry records one send attempt. Entries are never deleted by this
// subsystem.
func (r *DeliveryLogRepo) InsertEntry(ctx context.Context, e *domain.DeliveryLogEntry) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO delivery_log
		(id, campaign_id, recipients, provider, provider_message_id,
		 delivery_status, status_code, error_text, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NOW(), NOW())
	`, e.ID, e.CampaignID, pq.Array(e.Recipients), e.Provider, e.ProviderMessageID,
		string(e.Status), e.StatusCode, e.ErrorText, metadata)
	if err != nil {
		return fmt.Errorf("insert delivery log entry: %w", err)
	}
	return nil
}

// UpdateWebhookEvent overwrites status, webhook data and updated_at on the
// entry matched by provider message id. Last write wins; the webhook blob
// is fully replaced, never merged.
func (r *DeliveryLogRepo) UpdateWebhookEvent(ctx context.Context, providerMessageID string, status domain.DeliveryStatus, rawEvent []byte) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE delivery_log
		SET delivery_status = $2, webhook_data = $3, updated_at = NOW()
		WHERE provider_message_id = $1
	`, providerMessageID, string(status), rawEvent)
	if err != nil {
		return false, fmt.Errorf("update delivery status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CampaignStats scans a campaign's entries and tallies the summary
// counters. Opened/clicked come from the stored webhook event name, so an
// entry can count toward both delivered and opened. This is read-time
// aggregation over the log, never a maintained counter.
func (r *DeliveryLogRepo) CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT delivery_status, COALESCE(webhook_data->>'event', '')
		FROM delivery_log
		WHERE campaign_id = $1
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query campaign stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.CampaignStats{CampaignID: campaignID}
	for rows.Next() {
		var status, event string
		if err := rows.Scan(&status, &event); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}

		switch domain.DeliveryStatus(status) {
		case domain.StatusSent, domain.StatusQueued:
			stats.Sent++
		case domain.StatusDelivered:
			stats.Delivered++
		case domain.StatusBounced:
			stats.Bounced++
		case domain.StatusFailed:
			stats.Failed++
		}

		switch event {
		case "open":
			stats.Opened++
		case "click":
			stats.Clicked++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}
	return stats, nil
}
