package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/logger"
)

// SendBulkEmails sends many messages through the orchestrator in fixed-size
// concurrent batches with inter-batch pacing. Within a batch every message
// settles independently: a failure or panic in one send is converted into a
// failed result entry and never aborts its siblings. Results preserve input
// order and counts are exact.
func (s *Service) SendBulkEmails(ctx context.Context, msgs []*domain.MessageRequest, campaignID string) *domain.BulkSendResult {
	out := &domain.BulkSendResult{
		Results: make([]domain.DeliveryResult, len(msgs)),
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < len(msgs); start += batchSize {
		end := start + batchSize
		if end > len(msgs) {
			end = len(msgs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						out.Results[i] = domain.DeliveryResult{
							Provider: domain.ProviderNone,
							Status:   domain.StatusFailed,
							Error:    fmt.Sprintf("send panicked: %v", r),
						}
					}
				}()
				out.Results[i] = *s.SendEmail(ctx, msgs[i], campaignID)
			}(i)
		}
		wg.Wait()

		// Pace between batches, never after the last one.
		if end < len(msgs) {
			s.sleep(s.cfg.BatchPause())
		}
	}

	for _, r := range out.Results {
		if r.Success {
			out.Sent++
		} else {
			out.Failed++
		}
	}

	logger.Info("bulk send complete",
		"total", fmt.Sprintf("%d", len(msgs)),
		"sent", fmt.Sprintf("%d", out.Sent),
		"failed", fmt.Sprintf("%d", out.Failed),
		"campaign_id", campaignID,
	)
	return out
}
