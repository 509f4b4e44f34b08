package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// Build creates a registry with one provider per configured type.
// Entries for unknown types are rejected; entries without a client ID are
// skipped with a warning. Built-in providers missing from configs are
// logged so that a forgotten entry is visible at startup.
func Build(configs map[domain.ProviderType]Config, opener SecretOpener, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	known := make(map[domain.ProviderType]bool)
	for _, providerType := range domain.AppProviders() {
		known[providerType] = true
	}
	for providerType := range configs {
		if !known[providerType] {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, providerType)
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	registry := NewRegistry()

	for _, providerType := range domain.AppProviders() {
		cfg, ok := configs[providerType]
		if !ok {
			logger.Debug("provider not configured", "provider", providerType)
			continue
		}
		if cfg.ClientID == "" {
			logger.Warn("provider has no client_id, token refresh disabled", "provider", providerType)
			continue
		}
		defaults, ok := DefaultsFor(providerType, cfg)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no built-in endpoints", domain.ErrUnsupportedProvider, providerType)
		}

		base := NewOAuth2Provider(providerType, cfg.oauth2Config(defaults), opener, client)
		switch {
		case providerType.IsGoogle():
			registry.Register(NewGoogleProvider(base, cfg.validationURL(defaults)))
		case providerType == domain.ProviderTypeSlack:
			registry.Register(NewSlackProvider(base, cfg.validationURL(defaults)))
		default:
			registry.Register(base)
		}
		logger.Info("registered app provider", "provider", providerType)
	}
	return registry, nil
}
