// Package delivery contains the send orchestrator: provider failover,
// per-provider retry with exponential backoff, the bulk batch sender, and
// the delivery log contract.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/logger"
	"github.com/leadforge/leadforge/internal/provider"
)

// ErrAllProvidersFailed is the error text surfaced when the primary and
// every fallback provider exhausted their attempts.
const ErrAllProvidersFailed = "All email providers failed"

// Service orchestrates message delivery across the registered providers.
// It owns no mutable state beyond the injected collaborators; the registry
// and config are read-only after construction, so all methods are safe for
// concurrent use.
type Service struct {
	registry *provider.Registry
	store    Store
	dist     *DistributionTracker
	cfg      config.DeliveryConfig

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// NewService creates a delivery service. dist may be nil when Redis is not
// configured; distribution tracking is telemetry only and never affects
// delivery control flow.
func NewService(registry *provider.Registry, store Store, dist *DistributionTracker, cfg config.DeliveryConfig) *Service {
	return &Service{
		registry: registry,
		store:    store,
		dist:     dist,
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// SendEmail delivers one message: the primary provider first, then each
// fallback in configured order, with per-provider retry and backoff.
// It never returns an error; callers check the result's Success flag.
// Exactly one delivery log entry is written per call, even on total failure.
func (s *Service) SendEmail(ctx context.Context, msg *domain.MessageRequest, campaignID string) *domain.DeliveryResult {
	if msg == nil || len(msg.To) == 0 {
		result := &domain.DeliveryResult{
			Provider: domain.ProviderNone,
			Status:   domain.StatusFailed,
			Error:    "invalid email request: no recipients",
		}
		s.logEntry(ctx, msg, campaignID, result)
		return result
	}

	for _, name := range s.providerChain() {
		adapter := s.registry.Get(name)
		if adapter == nil || !adapter.IsConfigured() {
			continue
		}

		result := s.attemptWithRetry(ctx, adapter, msg)
		if result.Success {
			logger.Info("email delivered",
				"provider", result.Provider,
				"message_id", result.MessageID,
				"recipient", msg.To[0],
				"campaign_id", campaignID,
			)
			s.recordDistribution(ctx, campaignID, result.Provider, true)
			s.logEntry(ctx, msg, campaignID, result)
			return result
		}

		logger.Warn("provider exhausted, trying next",
			"provider", name,
			"error", result.Error,
			"campaign_id", campaignID,
		)
		s.recordDistribution(ctx, campaignID, name, false)
	}

	result := &domain.DeliveryResult{
		Provider: domain.ProviderNone,
		Status:   domain.StatusFailed,
		Error:    ErrAllProvidersFailed,
	}
	logger.Error("all providers failed",
		"recipient", msg.To[0],
		"campaign_id", campaignID,
	)
	s.logEntry(ctx, msg, campaignID, result)
	return result
}

// providerChain returns the primary followed by the fallbacks, deduplicated
// so a provider is never attempted twice in one call.
func (s *Service) providerChain() []string {
	chain := make([]string, 0, 1+len(s.cfg.FallbackProviders))
	seen := make(map[string]bool)
	for _, name := range append([]string{s.cfg.PrimaryProvider}, s.cfg.FallbackProviders...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		chain = append(chain, name)
	}
	return chain
}

// attemptWithRetry runs one provider's attempt loop. The attempt count is
// min(adapter ceiling, global ceiling) + 1; retry i sleeps
// baseDelay * 2^(i-1) first. Terminal errors end the loop early — for this
// provider only.
func (s *Service) attemptWithRetry(ctx context.Context, adapter provider.Adapter, msg *domain.MessageRequest) *domain.DeliveryResult {
	retries := adapter.MaxRetries()
	if s.cfg.MaxRetries < retries {
		retries = s.cfg.MaxRetries
	}
	// A negative ceiling (misconfiguration) still gets the first attempt.
	if retries < 0 {
		retries = 0
	}

	var last *domain.DeliveryResult
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			s.sleep(s.cfg.BaseRetryDelay() * (1 << (attempt - 1)))
		}

		result, err := adapter.Send(ctx, msg)
		if err != nil {
			result = &domain.DeliveryResult{
				Provider: adapter.Name(),
				Status:   domain.StatusFailed,
				Error:    err.Error(),
			}
		}
		if result.Success {
			return result
		}

		last = result
		if IsTerminalError(result.Error) {
			logger.Debug("terminal error, skipping remaining retries",
				"provider", adapter.Name(),
				"error", result.Error,
			)
			break
		}
	}
	return last
}

// logEntry writes the delivery log record for one orchestrated send.
// A failed write is logged but never reverses the result already produced;
// the send outcome is authoritative even if its audit record is lost.
func (s *Service) logEntry(ctx context.Context, msg *domain.MessageRequest, campaignID string, result *domain.DeliveryResult) {
	entry := &domain.DeliveryLogEntry{
		ID:                uuid.New().String(),
		Provider:          result.Provider,
		ProviderMessageID: result.MessageID,
		Status:            result.Status,
		StatusCode:        result.StatusCode,
		ErrorText:         result.Error,
		CreatedAt:         time.Now().UTC(),
	}
	if campaignID != "" {
		entry.CampaignID = &campaignID
	}
	if msg != nil {
		entry.Recipients = msg.To
		entry.Metadata = map[string]any{
			"subject":     msg.Subject,
			"from_email":  msg.FromEmail,
			"sender_name": msg.FromName,
			"sent_at":     entry.CreatedAt.Format(time.RFC3339),
		}
	}

	if err := s.store.InsertEntry(ctx, entry); err != nil {
		logger.Error("delivery log write failed",
			"provider", result.Provider,
			"message_id", result.MessageID,
			"err", err.Error(),
		)
	}
}

func (s *Service) recordDistribution(ctx context.Context, campaignID, providerName string, success bool) {
	if s.dist == nil {
		return
	}
	if success {
		s.dist.RecordSend(ctx, campaignID, providerName)
	} else {
		s.dist.RecordFailure(ctx, campaignID, providerName)
	}
}
