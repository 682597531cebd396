// Package api exposes the delivery engine to the rest of the application:
// single and bulk sends, campaign statistics, provider distribution, and
// the inbound provider webhooks.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leadforge/leadforge/internal/delivery"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/httputil"
)

// Sender is the send surface consumed by the HTTP handlers.
type Sender interface {
	SendEmail(ctx context.Context, msg *domain.MessageRequest, campaignID string) *domain.DeliveryResult
	SendBulkEmails(ctx context.Context, msgs []*domain.MessageRequest, campaignID string) *domain.BulkSendResult
}

// StatsReader serves read-time campaign aggregation.
type StatsReader interface {
	CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignStats, error)
}

// Handlers holds the HTTP handlers for the delivery API.
type Handlers struct {
	sender Sender
	stats  StatsReader
	dist   *delivery.DistributionTracker
	start  time.Time
}

// NewHandlers creates the API handlers. dist may be nil when Redis is not
// configured.
func NewHandlers(sender Sender, stats StatsReader, dist *delivery.DistributionTracker) *Handlers {
	return &Handlers{sender: sender, stats: stats, dist: dist, start: time.Now()}
}

// sendRequest is the JSON body for single sends.
type sendRequest struct {
	domain.MessageRequest
	CampaignID string `json:"campaign_id,omitempty"`
}

// HandleSend processes POST /api/messages. The orchestrator never returns
// an error; callers inspect the result's success flag.
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.To) == 0 {
		httputil.BadRequest(w, "at least one recipient is required")
		return
	}
	if req.FromEmail == "" {
		httputil.BadRequest(w, "from_email is required")
		return
	}

	result := h.sender.SendEmail(r.Context(), &req.MessageRequest, req.CampaignID)
	httputil.OK(w, result)
}

// bulkSendRequest is the JSON body for bulk sends.
type bulkSendRequest struct {
	Messages   []*domain.MessageRequest `json:"messages"`
	CampaignID string                   `json:"campaign_id,omitempty"`
}

// HandleBulkSend processes POST /api/messages/bulk.
func (h *Handlers) HandleBulkSend(w http.ResponseWriter, r *http.Request) {
	var req bulkSendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		httputil.BadRequest(w, "messages must not be empty")
		return
	}

	summary := h.sender.SendBulkEmails(r.Context(), req.Messages, req.CampaignID)
	httputil.OK(w, summary)
}

// HandleCampaignStats processes GET /api/campaigns/{campaignID}/stats.
func (h *Handlers) HandleCampaignStats(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		httputil.BadRequest(w, "campaign id is required")
		return
	}

	stats, err := h.stats.CampaignStats(r.Context(), campaignID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// HandleDistribution processes GET /api/campaigns/{campaignID}/distribution.
func (h *Handlers) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	if h.dist == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "distribution tracking is not enabled")
		return
	}

	snapshot, err := h.dist.Snapshot(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, snapshot)
}

// HandleHealth processes GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.start).Round(time.Second).String(),
	})
}
