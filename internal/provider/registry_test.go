package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/config"
)

func TestNewRegistryOnlyCredentialedProviders(t *testing.T) {
	cfg := &config.Config{
		SendGrid: config.SendGridConfig{APIKey: "sg-key", BaseURL: "https://api.sendgrid.com/v3"},
		Mailgun:  config.MailgunConfig{APIKey: "mg-key", Domain: "mail.example.com", BaseURL: "https://api.mailgun.net/v3"},
		// SES and SparkPost have no credentials.
	}

	r := NewRegistry(cfg)

	assert.Equal(t, []string{"sendgrid", "mailgun"}, r.Names())
	assert.NotNil(t, r.Get("sendgrid"))
	assert.NotNil(t, r.Get("mailgun"))
	assert.Nil(t, r.Get("ses"))
	assert.Nil(t, r.Get("sparkpost"))
}

func TestNewRegistryEmpty(t *testing.T) {
	r := NewRegistry(&config.Config{})

	assert.Empty(t, r.Names())
	assert.Nil(t, r.Get("sendgrid"))
}

func TestRegistryGetCaseInsensitive(t *testing.T) {
	cfg := &config.Config{
		SendGrid: config.SendGridConfig{APIKey: "sg-key"},
	}
	r := NewRegistry(cfg)

	require.NotNil(t, r.Get("SendGrid"))
	require.NotNil(t, r.Get("SENDGRID"))
}

func TestRegistryNamesIsACopy(t *testing.T) {
	cfg := &config.Config{
		SendGrid: config.SendGridConfig{APIKey: "sg-key"},
	}
	r := NewRegistry(cfg)

	names := r.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"sendgrid"}, r.Names())
}
