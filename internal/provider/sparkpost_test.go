package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/domain"
)

func newSparkPostTestAdapter(baseURL string) *SparkPostAdapter {
	return NewSparkPostAdapter(
		config.SparkPostConfig{APIKey: "sp-test-key", BaseURL: baseURL, TimeoutSeconds: 5},
		config.DeliveryConfig{TrackOpens: true, TrackClicks: true},
	)
}

func sparkPostMessage() *domain.MessageRequest {
	return &domain.MessageRequest{
		To:        []string{"user@example.com"},
		FromEmail: "news@leadforge.io",
		FromName:  "LeadForge",
		Subject:   "Hello",
		HTML:      "<p>Hi</p>",
	}
}

func TestSparkPostSendSuccess(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"results":{"id":"sp_123","total_accepted_recipients":1}}`))
	}))
	defer srv.Close()

	adapter := newSparkPostTestAdapter(srv.URL)
	result, err := adapter.Send(context.Background(), sparkPostMessage())

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "sp_123", result.MessageID)
	assert.Equal(t, "sparkpost", result.Provider)
	assert.Equal(t, domain.StatusQueued, result.Status)
	assert.Equal(t, "sp-test-key", gotAuth, "SparkPost takes the raw key, no Bearer prefix")
}

func TestSparkPostSendUnparseableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	adapter := newSparkPostTestAdapter(srv.URL)
	result, err := adapter.Send(context.Background(), sparkPostMessage())

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.MessageID, "a synthetic id keeps the send correlatable")
}

func TestSparkPostSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"message":"invalid email address"}]}`))
	}))
	defer srv.Close()

	adapter := newSparkPostTestAdapter(srv.URL)
	result, err := adapter.Send(context.Background(), sparkPostMessage())

	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
	assert.Contains(t, result.Error, "invalid email address")
}

func TestSparkPostUnconfigured(t *testing.T) {
	adapter := NewSparkPostAdapter(config.SparkPostConfig{}, config.DeliveryConfig{})
	assert.False(t, adapter.IsConfigured())

	_, err := adapter.Send(context.Background(), sparkPostMessage())
	require.Error(t, err)
}
