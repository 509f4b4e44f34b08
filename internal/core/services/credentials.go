package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// CredentialManager validates and refreshes access tokens of connected app
// connectors. None of its operations return errors: every failure is
// logged and turned into a connector status.
type CredentialManager struct {
	registry    *ConnectorRegistry
	providers   driven.ProviderRegistry
	encryptor   driven.CredentialEncryptor
	metadata    driven.EncryptionMetadataStore
	clock       func() time.Time
	concurrency int
	logger      *slog.Logger
}

// CredentialManagerConfig holds dependencies for CredentialManager.
type CredentialManagerConfig struct {
	Registry  *ConnectorRegistry
	Providers driven.ProviderRegistry
	Encryptor driven.CredentialEncryptor
	Metadata  driven.EncryptionMetadataStore
	Clock     func() time.Time
	Logger    *slog.Logger

	// Concurrency caps parallel validations. Zero or less means one
	// goroutine per connector.
	Concurrency int
}

// NewCredentialManager creates a new credential manager.
func NewCredentialManager(cfg CredentialManagerConfig) *CredentialManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CredentialManager{
		registry:    cfg.Registry,
		providers:   cfg.Providers,
		encryptor:   cfg.Encryptor,
		metadata:    cfg.Metadata,
		clock:       clockOrNow(cfg.Clock),
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// ValidateConnectorTokens checks every connected app connector in
// parallel and waits for all of them to settle. A connector whose token is
// expired or rejected is refreshed; if that fails it is marked expired.
func (m *CredentialManager) ValidateConnectorTokens(ctx context.Context) {
	targets := m.registry.projection.Connectors(func(c *domain.Connector) bool {
		return c.Category == domain.ConnectorCategoryApp && c.Status == domain.ConnectorStatusConnected
	})
	if len(targets) == 0 {
		return
	}

	if err := m.encryptor.Init(ctx); err != nil {
		m.logger.Error("credential encryptor unavailable, checking expiry only", "error", err)
		m.expireLapsed(ctx, targets)
		return
	}

	start := m.clock()
	m.logger.Info("validating connector tokens", "count", len(targets))

	var g errgroup.Group
	if m.concurrency > 0 {
		g.SetLimit(m.concurrency)
	}
	for _, connector := range targets {
		g.Go(func() error {
			m.validateOne(ctx, connector)
			return nil
		})
	}
	_ = g.Wait()

	m.logger.Info("connector token validation complete",
		"count", len(targets),
		"duration", m.clock().Sub(start),
	)
}

func (m *CredentialManager) validateOne(ctx context.Context, connector *domain.Connector) {
	log := m.logger.With("connector_id", connector.ID, "provider", connector.Provider)
	defer func() {
		if r := recover(); r != nil {
			log.Error("token validation panicked", "panic", r)
		}
	}()

	needsRefresh, err := m.needsRefresh(ctx, connector)
	if err != nil {
		log.Warn("skipping token validation", "error", err)
		return
	}
	if !needsRefresh {
		return
	}

	if m.RefreshConnectorToken(ctx, connector.ID) {
		return
	}
	m.markExpired(ctx, connector.ID, log)
}

// expireLapsed marks connectors whose recorded expiry has passed. It needs
// no decryption, so it still runs when the encryptor cannot start; nothing
// can be refreshed in that case.
func (m *CredentialManager) expireLapsed(ctx context.Context, targets []*domain.Connector) {
	now := m.clock()
	for _, connector := range targets {
		if connector.IsExpiredAt(now) {
			m.markExpired(ctx, connector.ID, m.logger.With("connector_id", connector.ID, "provider", connector.Provider))
		}
	}
}

func (m *CredentialManager) markExpired(ctx context.Context, id string, log *slog.Logger) {
	patch := domain.StatusPatch(domain.ConnectorStatusExpired, ExpiredTokenMessage)
	if err := m.registry.UpdateSilently(ctx, id, patch); err != nil {
		log.Error("failed to mark connector expired", "error", err)
		return
	}
	log.Info("connector token expired")
}

// needsRefresh decides whether the connector's access token must be
// renewed. A non-nil error means validation was skipped.
func (m *CredentialManager) needsRefresh(ctx context.Context, connector *domain.Connector) (bool, error) {
	if connector.IsExpiredAt(m.clock()) {
		return true, nil
	}
	if connector.EncryptedToken == "" {
		return false, nil
	}

	provider, err := m.providers.GetAppProvider(connector.Provider)
	if err != nil {
		return false, err
	}
	validator, ok := provider.(driven.TokenValidator)
	if !ok {
		return false, nil
	}

	meta, err := m.metadata.Get(ctx, connector.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("no encryption metadata: %w", err)
		}
		return false, fmt.Errorf("read encryption metadata: %w", err)
	}

	token, err := m.encryptor.Decrypt(ctx, connector.EncryptedToken, meta.IV, meta.Salt)
	if err != nil {
		m.logger.Warn("cannot decrypt access token, assuming invalid",
			"connector_id", connector.ID,
			"error", err,
		)
		return true, nil
	}

	valid, err := validator.ValidateToken(ctx, token)
	if err != nil {
		m.logger.Warn("provider token validation failed",
			"connector_id", connector.ID,
			"error", fmt.Errorf("%w: %w", domain.ErrProvider, err),
		)
		return true, nil
	}
	return !valid, nil
}

// RefreshConnectorToken obtains a new access token from the provider and
// stores it with freshly generated encryption metadata. It reports whether
// the refresh fully succeeded and never panics.
func (m *CredentialManager) RefreshConnectorToken(ctx context.Context, id string) (ok bool) {
	log := m.logger.With("connector_id", id)
	defer func() {
		if r := recover(); r != nil {
			log.Error("token refresh panicked", "panic", r)
			ok = false
		}
	}()

	connector, found := m.registry.Get(id)
	if !found {
		log.Debug("token refresh skipped, connector not found")
		return false
	}
	if connector.EncryptedRefreshToken == "" {
		log.Debug("token refresh skipped, no refresh token")
		return false
	}

	provider, err := m.providers.GetAppProvider(connector.Provider)
	if err != nil {
		log.Warn("token refresh failed", "provider", connector.Provider, "error", err)
		return false
	}

	// Providers open the sealed refresh token with the same key
	if err := m.encryptor.Init(ctx); err != nil {
		log.Error("credential encryptor unavailable", "error", err)
		return false
	}

	result, err := provider.RefreshToken(ctx, connector)
	if err != nil {
		log.Warn("token refresh failed", "error", fmt.Errorf("%w: %w", domain.ErrProvider, err))
		return false
	}
	if result == nil || result.AccessToken == "" {
		log.Warn("token refresh returned no access token")
		return false
	}

	secret, err := m.encryptor.Encrypt(ctx, result.AccessToken)
	if err != nil {
		log.Error("failed to encrypt refreshed token", "error", fmt.Errorf("%w: %w", domain.ErrCredential, err))
		return false
	}

	patch := domain.StatusPatch(domain.ConnectorStatusConnected, "")
	patch.EncryptedToken = &secret.Ciphertext
	if result.ExpiresIn != nil {
		expiresAt := m.clock().UTC().Add(time.Duration(*result.ExpiresIn) * time.Second)
		patch.TokenExpiresAt = &expiresAt
	} else {
		patch.ClearTokenExpiry = true
	}

	if result.RefreshToken != "" {
		sealed, err := m.encryptor.Seal(ctx, result.RefreshToken)
		if err != nil {
			log.Error("failed to seal rotated refresh token", "error", fmt.Errorf("%w: %w", domain.ErrCredential, err))
			return false
		}
		patch.EncryptedRefreshToken = &sealed
	}

	if err := m.registry.UpdateSilently(ctx, id, patch); err != nil {
		log.Error("failed to store refreshed token", "error", err)
		return false
	}

	meta := &domain.EncryptionMetadata{
		ConnectorID:    id,
		IV:             secret.IV,
		Salt:           secret.Salt,
		NonExtractable: true,
	}
	if err := m.metadata.Put(ctx, meta); err != nil {
		log.Error("failed to store encryption metadata", "error", err)
		return false
	}

	log.Info("connector token refreshed", "provider", connector.Provider)
	return true
}

// ForgetConnector removes the encryption metadata of a deleted connector.
// Failures are logged only.
func (m *CredentialManager) ForgetConnector(ctx context.Context, id string) {
	if err := m.metadata.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("failed to delete encryption metadata", "connector_id", id, "error", err)
	}
}
