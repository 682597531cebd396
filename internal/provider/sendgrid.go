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

// SendGridAdapter sends emails via the SendGrid v3 Mail Send API.
type SendGridAdapter struct {
	apiKey      string
	baseURL     string
	trackOpens  bool
	trackClicks bool
	client      *http.Client
}

// NewSendGridAdapter creates a SendGrid adapter.
func NewSendGridAdapter(cfg config.SendGridConfig, delivery config.DeliveryConfig) *SendGridAdapter {
	return &SendGridAdapter{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		trackOpens:  delivery.TrackOpens,
		trackClicks: delivery.TrackClicks,
		client:      &http.Client{Timeout: cfg.Timeout()},
	}
}

// Name returns "sendgrid".
func (s *SendGridAdapter) Name() string { return "sendgrid" }

// IsConfigured reports whether an API key is present.
func (s *SendGridAdapter) IsConfigured() bool { return s.apiKey != "" }

// MaxRetries returns the adapter retry ceiling.
func (s *SendGridAdapter) MaxRetries() int { return 3 }

// Send delivers a single message through SendGrid. The message id comes
// from the X-Message-Id response header; SendGrid confirms synchronously,
// so the initial status is "sent".
func (s *SendGridAdapter) Send(ctx context.Context, msg *domain.MessageRequest) (*domain.DeliveryResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("SendGrid API key not configured")
	}

	to := make([]map[string]string, len(msg.To))
	for i, addr := range msg.To {
		to[i] = map[string]string{"email": addr}
	}

	personalization := map[string]any{"to": to}
	if len(msg.Metadata) > 0 {
		personalization["custom_args"] = msg.Metadata
	}

	payload := map[string]any{
		"personalizations": []map[string]any{personalization},
		"from":             map[string]string{"email": msg.FromEmail, "name": msg.FromName},
		"subject":          msg.Subject,
		"content":          []map[string]string{{"type": "text/html", "value": msg.HTML}},
		"tracking_settings": map[string]any{
			"click_tracking": map[string]bool{"enable": s.trackClicks},
			"open_tracking":  map[string]bool{"enable": s.trackOpens},
		},
	}
	if msg.Text != "" {
		payload["content"] = []map[string]string{
			{"type": "text/plain", "value": msg.Text},
			{"type": "text/html", "value": msg.HTML},
		}
	}
	if msg.ReplyTo != "" {
		payload["reply_to"] = map[string]string{"email": msg.ReplyTo}
	}
	if len(msg.Headers) > 0 {
		payload["headers"] = msg.Headers
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &domain.DeliveryResult{
			Provider: s.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("marshal: %v", err),
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/mail/send", bytes.NewReader(jsonData))
	if err != nil {
		return &domain.DeliveryResult{
			Provider: s.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("create request: %v", err),
		}, nil
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
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

	if resp.StatusCode >= 300 {
		return &domain.DeliveryResult{
			Provider:   s.Name(),
			Status:     domain.StatusFailed,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("SendGrid error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}, nil
	}

	messageID := resp.Header.Get("X-Message-Id")
	if messageID == "" {
		messageID = uuid.New().String()
	}

	log.Printf("[SendGrid] Sent to %s (id: %s)", logger.RedactEmail(msg.To[0]), messageID)
	return &domain.DeliveryResult{
		Success:    true,
		MessageID:  messageID,
		Provider:   s.Name(),
		StatusCode: resp.StatusCode,
		Status:     domain.StatusSent,
	}, nil
}
