package provider

import (
	"log"
	"strings"

	"github.com/leadforge/leadforge/internal/config"
)

// Registry holds the adapters whose credentials were present at startup.
// It is built once and read concurrently thereafter; no mutation happens
// after construction. A provider without credentials is simply unavailable,
// never an error.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

// NewRegistry inspects the configuration and instantiates exactly the
// adapters that have credentials.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}

	if cfg.SendGrid.APIKey != "" {
		r.register(NewSendGridAdapter(cfg.SendGrid, cfg.Delivery))
	}
	if cfg.Mailgun.APIKey != "" && cfg.Mailgun.Domain != "" {
		r.register(NewMailgunAdapter(cfg.Mailgun, cfg.Delivery))
	}
	if cfg.SES.AccessKey != "" && cfg.SES.SecretKey != "" {
		r.register(NewSESAdapter(cfg.SES))
	}
	if cfg.SparkPost.APIKey != "" {
		r.register(NewSparkPostAdapter(cfg.SparkPost, cfg.Delivery))
	}

	log.Printf("[provider] Registry initialized with %d provider(s): %s",
		len(r.names), strings.Join(r.names, ", "))
	return r
}

// NewRegistryFromAdapters builds a registry from explicit adapters,
// primarily for tests.
func NewRegistryFromAdapters(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.register(a)
	}
	return r
}

func (r *Registry) register(a Adapter) {
	name := strings.ToLower(a.Name())
	if _, exists := r.adapters[name]; !exists {
		r.names = append(r.names, name)
	}
	r.adapters[name] = a
}

// Get returns the adapter registered under name, or nil if that provider
// is unavailable. Lookup is case-insensitive.
func (r *Registry) Get(name string) Adapter {
	return r.adapters[strings.ToLower(name)]
}

// Names returns the available provider names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
