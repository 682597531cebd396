package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/logger"
)

// SparkPostAdapter sends emails via the SparkPost Transmissions API.
type SparkPostAdapter struct {
	apiKey      string
	baseURL     string
	trackOpens  bool
	trackClicks bool
	client      *http.Client
}

// NewSparkPostAdapter creates a SparkPost adapter.
func NewSparkPostAdapter(cfg config.SparkPostConfig, delivery config.DeliveryConfig) *SparkPostAdapter {
	return &SparkPostAdapter{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		trackOpens:  delivery.TrackOpens,
		trackClicks: delivery.TrackClicks,
		client:      &http.Client{Timeout: cfg.Timeout()},
	}
}

// Name returns "sparkpost".
func (s *SparkPostAdapter) Name() string { return "sparkpost" }

// IsConfigured reports whether an API key is present.
func (s *SparkPostAdapter) IsConfigured() bool { return s.apiKey != "" }

// MaxRetries returns the adapter retry ceiling.
func (s *SparkPostAdapter) MaxRetries() int { return 3 }

// Send delivers a single message through SparkPost. The transmissions API
// acknowledges acceptance only, so the initial status is "queued".
func (s *SparkPostAdapter) Send(ctx context.Context, msg *domain.MessageRequest) (*domain.DeliveryResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("SparkPost API key not configured")
	}

	recipients := make([]map[string]any, len(msg.To))
	for i, addr := range msg.To {
		r := map[string]any{"address": map[string]string{"email": addr}}
		if len(msg.Metadata) > 0 {
			r["metadata"] = msg.Metadata
		}
		recipients[i] = r
	}

	content := map[string]any{
		"from":    map[string]string{"email": msg.FromEmail, "name": msg.FromName},
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if msg.Text != "" {
		content["text"] = msg.Text
	}
	if msg.ReplyTo != "" {
		content["reply_to"] = msg.ReplyTo
	}
	if len(msg.Headers) > 0 {
		content["headers"] = msg.Headers
	}

	transmission := map[string]any{
		"recipients": recipients,
		"content":    content,
		"options": map[string]bool{
			"open_tracking":  s.trackOpens,
			"click_tracking": s.trackClicks,
		},
	}

	jsonData, err := json.Marshal(transmission)
	if err != nil {
		return &domain.DeliveryResult{
			Provider: s.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("marshal: %v", err),
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/transmissions", bytes.NewReader(jsonData))
	if err != nil {
		return &domain.DeliveryResult{
			Provider: s.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("create request: %v", err),
		}, nil
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.DeliveryResult{
			Provider: s.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("send: %v", err),
		}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var spResp struct {
		Results struct {
			ID string `json:"id"`
		} `json:"results"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &spResp); err != nil && resp.StatusCode < 300 {
		log.Printf("[SparkPost] Warning: unparseable success response: %v", err)
	}

	if resp.StatusCode >= 300 || len(spResp.Errors) > 0 {
		errMsg := strings.TrimSpace(string(body))
		if len(spResp.Errors) > 0 {
			errMsg = spResp.Errors[0].Message
		}
		return &domain.DeliveryResult{
			Provider:   s.Name(),
			Status:     domain.StatusFailed,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("SparkPost error %d: %s", resp.StatusCode, errMsg),
		}, nil
	}

	messageID := spResp.Results.ID
	if messageID == "" {
		// Without an id the send could never be correlated with webhooks.
		messageID = uuid.New().String()
	}

	log.Printf("[SparkPost] Accepted for %s (id: %s)", logger.RedactEmail(msg.To[0]), messageID)
	return &domain.DeliveryResult{
		Success:    true,
		MessageID:  messageID,
		Provider:   s.Name(),
		StatusCode: resp.StatusCode,
		Status:     domain.StatusQueued,
	}, nil
}
