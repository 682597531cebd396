package webhook

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the provider webhook endpoints. Providers treat webhook
// delivery as fire-and-forget, so every processed request answers 200:
// a non-2xx would only trigger provider-side redelivery of events we have
// already decided to drop.
type Handler struct {
	normalizer *Normalizer

	eventsReceived int64
	errors         int64
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(normalizer *Normalizer) *Handler {
	return &Handler{normalizer: normalizer}
}

// HandleProviderWebhook processes POST /webhooks/{provider}.
func (h *Handler) HandleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if providerName == "ses" && h.confirmSNSSubscription(body) {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.normalizer.HandleEvent(r.Context(), providerName, body); err != nil {
		atomic.AddInt64(&h.errors, 1)
		log.Printf("[webhook] %s event dropped: %v", providerName, err)
	} else {
		atomic.AddInt64(&h.eventsReceived, 1)
	}

	w.WriteHeader(http.StatusOK)
}

// confirmSNSSubscription answers the one-time SNS handshake. Returns true
// when the payload was a confirmation request rather than an event.
func (h *Handler) confirmSNSSubscription(body []byte) bool {
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	if envelope.Type != "SubscriptionConfirmation" || envelope.SubscribeURL == "" {
		return false
	}

	log.Printf("[webhook] SES subscription confirmation received, confirming...")
	resp, err := http.Get(envelope.SubscribeURL)
	if err != nil {
		log.Printf("[webhook] failed to confirm subscription: %v", err)
		return true
	}
	resp.Body.Close()
	log.Printf("[webhook] SES subscription confirmed")
	return true
}

// Stats returns processing counters for the health endpoint.
func (h *Handler) Stats() map[string]int64 {
	return map[string]int64{
		"events_received": atomic.LoadInt64(&h.eventsReceived),
		"errors":          atomic.LoadInt64(&h.errors),
	}
}
