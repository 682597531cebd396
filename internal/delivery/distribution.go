package delivery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/leadforge/leadforge/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// DistributionTracker keeps per-campaign, per-provider send counters in
// Redis so operators can see how traffic actually split across providers
// after failover. Counter failures are logged and ignored; tracking never
// affects delivery.
type DistributionTracker struct {
	redis  *redis.Client
	prefix string
}

// ProviderDistribution is the counter snapshot for one provider.
type ProviderDistribution struct {
	Provider    string  `json:"provider"`
	SentCount   int64   `json:"sent_count"`
	FailedCount int64   `json:"failed_count"`
	Percentage  float64 `json:"actual_percentage"`
}

// NewDistributionTracker creates a tracker on the given Redis client.
func NewDistributionTracker(redisClient *redis.Client) *DistributionTracker {
	return &DistributionTracker{redis: redisClient, prefix: "delivery:dist:"}
}

// campaignSegment escapes the campaign id so the key segment can never
// contain a colon or a glob metacharacter. Ad-hoc sends (no campaign) use
// an empty segment, which no escaped campaign id can produce.
func campaignSegment(campaignID string) string {
	return url.QueryEscape(campaignID)
}

func (d *DistributionTracker) key(campaignID, providerName, kind string) string {
	return fmt.Sprintf("%s%s:%s:%s", d.prefix, campaignSegment(campaignID), providerName, kind)
}

// RecordSend increments the success counter for a provider.
func (d *DistributionTracker) RecordSend(ctx context.Context, campaignID, providerName string) {
	if err := d.redis.Incr(ctx, d.key(campaignID, providerName, "sent")).Err(); err != nil {
		logger.Warn("distribution counter incr failed", "provider", providerName, "err", err.Error())
	}
}

// RecordFailure increments the failure counter for a provider.
func (d *DistributionTracker) RecordFailure(ctx context.Context, campaignID, providerName string) {
	if err := d.redis.Incr(ctx, d.key(campaignID, providerName, "failed")).Err(); err != nil {
		logger.Warn("distribution counter incr failed", "provider", providerName, "err", err.Error())
	}
}

// Snapshot returns the current distribution for a campaign.
func (d *DistributionTracker) Snapshot(ctx context.Context, campaignID string) ([]ProviderDistribution, error) {
	scope := d.prefix + campaignSegment(campaignID) + ":"
	keys, err := d.redis.Keys(ctx, scope+"*").Result()
	if err != nil {
		return nil, err
	}

	byProvider := make(map[string]*ProviderDistribution)
	var totalSent int64

	for _, key := range keys {
		val, err := d.redis.Get(ctx, key).Int64()
		if err != nil {
			continue
		}

		// Key shape: {prefix}{escaped campaign}:{provider}:{sent|failed}
		parts := strings.Split(strings.TrimPrefix(key, scope), ":")
		if len(parts) != 2 {
			continue
		}
		providerName := parts[0]
		kind := parts[1]

		if _, ok := byProvider[providerName]; !ok {
			byProvider[providerName] = &ProviderDistribution{Provider: providerName}
		}
		switch kind {
		case "sent":
			byProvider[providerName].SentCount = val
			totalSent += val
		case "failed":
			byProvider[providerName].FailedCount = val
		}
	}

	out := make([]ProviderDistribution, 0, len(byProvider))
	for _, pd := range byProvider {
		if totalSent > 0 {
			pd.Percentage = float64(pd.SentCount) / float64(totalSent) * 100
		}
		out = append(out, *pd)
	}
	return out, nil
}

// Clear removes the distribution counters for a campaign.
func (d *DistributionTracker) Clear(ctx context.Context, campaignID string) error {
	pattern := fmt.Sprintf("%s%s:*", d.prefix, campaignSegment(campaignID))
	keys, err := d.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return d.redis.Del(ctx, keys...).Err()
	}
	return nil
}
