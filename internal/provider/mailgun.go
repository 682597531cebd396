package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/logger"
)

// MailgunAdapter sends emails via the Mailgun Messages API.
type MailgunAdapter struct {
	apiKey      string
	domain      string
	baseURL     string
	trackOpens  bool
	trackClicks bool
	client      *http.Client
}

// NewMailgunAdapter creates a Mailgun adapter targeting the given domain.
func NewMailgunAdapter(cfg config.MailgunConfig, delivery config.DeliveryConfig) *MailgunAdapter {
	return &MailgunAdapter{
		apiKey:      cfg.APIKey,
		domain:      cfg.Domain,
		baseURL:     cfg.BaseURL,
		trackOpens:  delivery.TrackOpens,
		trackClicks: delivery.TrackClicks,
		client:      &http.Client{Timeout: cfg.Timeout()},
	}
}

// Name returns "mailgun".
func (m *MailgunAdapter) Name() string { return "mailgun" }

// IsConfigured reports whether both API key and sending domain are present.
func (m *MailgunAdapter) IsConfigured() bool { return m.apiKey != "" && m.domain != "" }

// MaxRetries returns the adapter retry ceiling.
func (m *MailgunAdapter) MaxRetries() int { return 3 }

// Send delivers a single message through Mailgun. Mailgun only acknowledges
// acceptance, so the initial status is "queued"; the message id arrives in
// the response body wrapped in angle brackets.
func (m *MailgunAdapter) Send(ctx context.Context, msg *domain.MessageRequest) (*domain.DeliveryResult, error) {
	if !m.IsConfigured() {
		return nil, fmt.Errorf("Mailgun API key or domain not configured")
	}

	form := url.Values{}
	form.Add("from", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	for _, addr := range msg.To {
		form.Add("to", addr)
	}
	form.Add("subject", msg.Subject)
	form.Add("html", msg.HTML)
	if msg.Text != "" {
		form.Add("text", msg.Text)
	}
	if msg.ReplyTo != "" {
		form.Add("h:Reply-To", msg.ReplyTo)
	}
	for k, v := range msg.Headers {
		form.Add("h:"+k, v)
	}
	for k, v := range msg.Metadata {
		form.Add("v:"+k, v)
	}
	if m.trackOpens {
		form.Add("o:tracking-opens", "yes")
	}
	if m.trackClicks {
		form.Add("o:tracking-clicks", "yes")
	}

	endpoint := fmt.Sprintf("%s/%s/messages", m.baseURL, m.domain)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &domain.DeliveryResult{
			Provider: m.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("create request: %v", err),
		}, nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return &domain.DeliveryResult{
			Provider: m.Name(),
			Status:   domain.StatusFailed,
			Error:    fmt.Sprintf("send: %v", err),
		}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		return &domain.DeliveryResult{
			Provider:   m.Name(),
			Status:     domain.StatusFailed,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("Mailgun error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}, nil
	}

	var mgResp struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &mgResp); err != nil {
		log.Printf("[Mailgun] Warning: unparseable success response: %v", err)
	}
	messageID := strings.Trim(mgResp.ID, "<>")
	if messageID == "" {
		// Without an id the send could never be correlated with webhooks.
		messageID = uuid.New().String()
	}

	log.Printf("[Mailgun] Accepted for %s (id: %s)", logger.RedactEmail(msg.To[0]), messageID)
	return &domain.DeliveryResult{
		Success:    true,
		MessageID:  messageID,
		Provider:   m.Name(),
		StatusCode: resp.StatusCode,
		Status:     domain.StatusQueued,
	}, nil
}
