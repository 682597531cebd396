// Package provider contains the transactional-email provider adapters.
//
// Adapters are split into individual files:
//   - sendgrid.go:  SendGrid v3 Mail Send
//   - mailgun.go:   Mailgun Messages API
//   - ses.go:       AWS SES v2
//   - sparkpost.go: SparkPost Transmissions API
//   - registry.go:  credential-driven registry built once at startup
package provider

import (
	"context"

	"github.com/leadforge/leadforge/internal/domain"
)

// Adapter wraps one third-party transactional-email API behind a uniform
// send contract. Implementations convert transport failures (timeouts,
// network errors, non-2xx responses) into failed DeliveryResults rather
// than returning raw errors; the error return is reserved for misuse such
// as sending through an unconfigured adapter.
type Adapter interface {
	// Name returns the registry key for this adapter ("sendgrid", ...).
	Name() string

	// Send attempts one delivery and maps the provider response into the
	// canonical result shape.
	Send(ctx context.Context, msg *domain.MessageRequest) (*domain.DeliveryResult, error)

	// IsConfigured reports whether the adapter's credentials are
	// well-formed. Unconfigured adapters are skipped, never attempted.
	IsConfigured() bool

	// MaxRetries returns this adapter's own retry ceiling. The
	// orchestrator applies the global ceiling on top of it.
	MaxRetries() int
}
