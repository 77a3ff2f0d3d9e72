// keymanager.go handles discovering, caching and validating the public keys
// used to verify certificate signatures, and unlocking the protected private
// keys used to create them.
//
// Public keys are resolved per party, in this order:
//   - embedded JWK: the public key stored on the party record at registration
//   - manual key: a key received out-of-band and dropped in the configured
//     keys directory
//   - JWKS endpoint: the party's remote JWKS, fetched and refreshed through a
//     background cache
//
// # manual keys
// Manual keys are loaded from the configured directory at startup and are not
// refreshed. Each file must contain exactly ONE public key in JWK format with
// a kid; files with multiple keys are rejected - if a party needs key
// rotation, point it at a JWKS endpoint instead.
//
// Keys are matched to parties by kid: a party resolves to the manual key
// whose kid equals the party's KeyID.
//
// # private keys
// Parties that sign on this deployment store their private key on the party
// record as a JWE protected under a secret only the party knows. The key is
// decrypted per signing call and never cached; a wrong secret surfaces as a
// key unlock error.
package custody

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/animal-health-networks/petcert/internal/crypto"
)

// PartySource provides party records to the KeyManager.
// The store layer implements it.
type PartySource interface {
	GetParty(ctx context.Context, partyID string) (*Party, error)
}

// KeyManager resolves public keys for signature verification and unlocks
// protected private keys for signing.
type KeyManager struct {
	// parties is the registry of vets and clinics.
	parties PartySource

	// manualKeys stores any manually configured keys (loaded from the
	// filesystem at startup). Keyed by kid.
	manualKeys map[string]jwk.Key

	// jwkCache is the auto-refreshing cache for remote JWK sets.
	jwkCache *jwk.Cache

	// registeredEndpoints tracks which JWKS endpoints have been registered
	// with the cache. Endpoints are registered lazily on first lookup,
	// since parties join the registry over time.
	registeredEndpoints map[string]bool

	// logger is used for structured logging.
	logger *slog.Logger

	// mu protects manualKeys.
	mu sync.RWMutex

	// endpointsMu protects registeredEndpoints. Separate from mu because
	// registering an endpoint blocks on the initial JWKS fetch, and that
	// must not stall manual key lookups.
	endpointsMu sync.RWMutex

	// config holds the KeyManager configuration.
	config *KeyManagerConfig
}

// KeyManagerConfig holds configuration for the KeyManager.
type KeyManagerConfig struct {
	// ManualKeysDir is the directory containing manually configured keys.
	// Each file must contain exactly ONE key (files with multiple keys are
	// rejected). Supported file extensions: .jwk, .jwks, .jwks.json.
	// Empty disables manual keys.
	ManualKeysDir string

	// SkipJWKCache disables JWK cache initialization (useful for testing
	// and for deployments where every party embeds its key).
	SkipJWKCache bool

	// JWKCacheMinRefreshInterval is the minimum interval between JWK cache
	// refreshes.
	JWKCacheMinRefreshInterval time.Duration

	// JWKCacheMaxRefreshInterval is the maximum interval between JWK cache
	// refreshes.
	JWKCacheMaxRefreshInterval time.Duration
}

// NewKeyManagerConfig creates a new KeyManager config with the specified parameters.
func NewKeyManagerConfig(manualKeysDir string, skipJWKCache bool, minRefreshInterval, maxRefreshInterval time.Duration) *KeyManagerConfig {
	return &KeyManagerConfig{
		ManualKeysDir:              manualKeysDir,
		SkipJWKCache:               skipJWKCache,
		JWKCacheMinRefreshInterval: minRefreshInterval,
		JWKCacheMaxRefreshInterval: maxRefreshInterval,
	}
}

// NewKeyManager creates a new KeyManager with the given configuration.
func NewKeyManager(ctx context.Context, parties PartySource, config *KeyManagerConfig, logger *slog.Logger) (*KeyManager, error) {
	if parties == nil {
		return nil, NewInternalError("party source is nil")
	}
	if config == nil {
		return nil, NewInternalError("config is nil")
	}
	if logger == nil {
		return nil, NewInternalError("logger cannot be nil")
	}

	km := &KeyManager{
		parties:             parties,
		manualKeys:          make(map[string]jwk.Key),
		registeredEndpoints: make(map[string]bool),
		logger:              logger,
		config:              config,
	}

	logger.Info("initializing KeyManager",
		slog.String("MANUAL_KEYS_DIR", config.ManualKeysDir),
		slog.Bool("SKIP_JWK_CACHE", config.SkipJWKCache))

	// Load manual keys
	if config.ManualKeysDir != "" {
		if err := km.loadManualKeys(); err != nil {
			return nil, WrapKeyManagementError(err, "failed to load manual keys")
		}
		km.logger.Info("manual keys loaded", slog.Int("keys", len(km.manualKeys)))
	}

	// Initialize JWK cache
	if !config.SkipJWKCache {
		client := httprc.NewClient()
		cache, err := jwk.NewCache(ctx, client)
		if err != nil {
			return nil, WrapKeyManagementError(err, "failed to create JWK cache")
		}
		km.jwkCache = cache
		km.logger.Debug("JWK cache initialized")
	} else {
		km.logger.Info("JWK cache initialization skipped")
	}

	return km, nil
}

// loadManualKeys loads manually configured JWK public keys from the
// configured directory.
//
// Manual key files must contain one RSA public key with a kid. Files that do
// not parse, carry multiple keys, exceed the size cap or hold non-RSA key
// material are skipped with a log entry rather than failing startup.
func (k *KeyManager) loadManualKeys() error {
	k.logger.Info("loading manual keys", slog.String("dir", k.config.ManualKeysDir))

	info, err := os.Stat(k.config.ManualKeysDir)
	if err != nil {
		if os.IsNotExist(err) {
			k.logger.Error("manual keys directory does not exist", slog.String("dir", k.config.ManualKeysDir))
			return NewValidationError(fmt.Sprintf("specified manual keys directory (%v) does not exist", k.config.ManualKeysDir))
		}
		return WrapKeyManagementError(err, "failed to stat manual keys directory")
	}

	if !info.IsDir() {
		return NewValidationError(fmt.Sprintf("manual keys path is not a directory: %s", k.config.ManualKeysDir))
	}

	entries, err := os.ReadDir(k.config.ManualKeysDir)
	if err != nil {
		return WrapKeyManagementError(err, "failed to read manual keys directory")
	}

	root, err := os.OpenRoot(k.config.ManualKeysDir)
	if err != nil {
		return WrapKeyManagementError(err, "failed to open manual keys directory")
	}
	defer root.Close()

	k.mu.Lock()
	defer k.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()

		// Only process .jwk, .jwks, or .jwks.json files
		isJWKFile := strings.HasSuffix(filename, ".jwk") ||
			strings.HasSuffix(filename, ".jwks") ||
			strings.HasSuffix(filename, ".jwks.json")

		if !isJWKFile {
			k.logger.Debug("skipping: non-JWK file", slog.String("file", filename))
			continue
		}

		// a key file larger than the cap is not a key file
		if fileInfo, err := entry.Info(); err == nil && fileInfo.Size() > crypto.MaxKeyFileSize {
			k.logger.Warn("skipping: key file exceeds size cap",
				slog.String("file", filename),
				slog.Int64("size", fileInfo.Size()),
				slog.Int64("cap", crypto.MaxKeyFileSize))
			continue
		}

		data, err := root.ReadFile(filename)
		if err != nil {
			if os.IsPermission(err) {
				k.logger.Debug("skipping: file permission denied",
					slog.String("file", filename))
			} else {
				k.logger.Error("skipping: failed to read manual key file",
					slog.String("file", filename),
					slog.String("error", err.Error()))
			}
			continue
		}

		keySet, err := jwk.Parse(data)
		if err != nil {
			k.logger.Error("skipping: failed to parse manual key data",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}

		// Manual keys must be single JWK files, not JWKS with multiple keys
		if keySet.Len() == 0 {
			k.logger.Error("skipping: manual key file contains no keys",
				slog.String("file", filename))
			continue
		}
		if keySet.Len() > 1 {
			k.logger.Error("skipping: manual key file contains multiple keys",
				slog.String("file", filename),
				slog.Int("key_count", keySet.Len()),
				slog.String("hint", "only single key files are supported for manual configuration - use a JWKS endpoint for key rotation"))
			continue
		}

		key, _ := keySet.Key(0)

		keyID, ok := key.KeyID()
		if !ok || keyID == "" {
			k.logger.Error("skipping: manual key missing kid",
				slog.String("file", filename))
			continue
		}

		// Certificate signatures are RSA-PSS, so only RSA public keys are usable
		var raw any
		if err := jwk.Export(key, &raw); err != nil {
			k.logger.Error("skipping: failed to export manual key",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}
		if _, ok := raw.(*rsa.PublicKey); !ok {
			k.logger.Warn("skipping: file does not contain an RSA public key",
				slog.String("file", filename),
				slog.String("key_type", fmt.Sprintf("%T", raw)))
			continue
		}

		if _, exists := k.manualKeys[keyID]; exists {
			k.logger.Warn("skipping: duplicate kid in manual keys directory",
				slog.String("file", filename),
				slog.String("kid", keyID))
			continue
		}

		k.manualKeys[keyID] = key

		k.logger.Info("manual public key loaded",
			slog.String("file", filename),
			slog.String("kid", keyID))
	}

	return nil
}

// GetPublicKey resolves a party's RSA public key for signature verification,
// checking the embedded JWK, then the manual keys directory, then the party's
// JWKS endpoint.
func (k *KeyManager) GetPublicKey(ctx context.Context, partyID string) (*rsa.PublicKey, error) {
	if partyID == "" {
		return nil, NewValidationError("party ID is required")
	}

	party, err := k.parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, WrapRegistryError(err, fmt.Sprintf("failed to look up party %s", partyID))
	}

	// 1. Embedded JWK from the party record
	if party.PublicKeyJWK != "" {
		key, err := k.parseEmbeddedKey(party)
		if err != nil {
			return nil, err
		}
		return key, nil
	}

	// 2. Manual keys directory
	k.mu.RLock()
	manualKey, exists := k.manualKeys[party.KeyID]
	k.mu.RUnlock()
	if exists {
		publicKey, err := crypto.JWKToRSAPublicKey(manualKey)
		if err != nil {
			return nil, WrapKeyManagementError(err, fmt.Sprintf("manual key %s is not usable", party.KeyID))
		}
		k.logger.Debug("resolved public key from manual keys",
			slog.String("party_id", party.ID),
			slog.String("kid", party.KeyID))
		return publicKey, nil
	}

	// 3. Remote JWKS endpoint
	if party.JWKSEndpoint != "" {
		return k.lookupRemoteKey(ctx, party)
	}

	return nil, NewKeyManagementError(fmt.Sprintf("no public key available for party %s (kid %s)", party.ID, party.KeyID))
}

// parseEmbeddedKey parses the JWK stored on the party record and checks that
// it matches the party's declared key ID.
func (k *KeyManager) parseEmbeddedKey(party *Party) (*rsa.PublicKey, error) {
	keySet, err := jwk.Parse([]byte(party.PublicKeyJWK))
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to parse embedded JWK for party %s", party.ID))
	}
	if keySet.Len() != 1 {
		return nil, NewKeyManagementError(fmt.Sprintf("embedded JWK for party %s must contain exactly one key", party.ID))
	}

	key, _ := keySet.Key(0)

	keyID, ok := key.KeyID()
	if !ok || keyID != party.KeyID {
		return nil, NewKeyManagementError(fmt.Sprintf("embedded JWK kid %q does not match party key ID %q", keyID, party.KeyID))
	}

	publicKey, err := crypto.JWKToRSAPublicKey(key)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("embedded JWK for party %s is not usable", party.ID))
	}

	k.logger.Debug("resolved public key from embedded JWK",
		slog.String("party_id", party.ID),
		slog.String("kid", party.KeyID))
	return publicKey, nil
}

// lookupRemoteKey fetches the party's key from its JWKS endpoint through the
// background cache, registering the endpoint on first use.
func (k *KeyManager) lookupRemoteKey(ctx context.Context, party *Party) (*rsa.PublicKey, error) {
	if k.jwkCache == nil {
		return nil, NewKeyManagementError(fmt.Sprintf("party %s uses a JWKS endpoint but the JWK cache is disabled", party.ID))
	}

	if err := k.registerEndpoint(ctx, party.JWKSEndpoint); err != nil {
		return nil, err
	}

	keySet, err := k.jwkCache.Lookup(ctx, party.JWKSEndpoint)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to fetch JWKS for party %s", party.ID))
	}

	key, found := keySet.LookupKeyID(party.KeyID)
	if !found {
		return nil, NewKeyManagementError(fmt.Sprintf("key %s not found in JWKS for party %s", party.KeyID, party.ID))
	}

	publicKey, err := crypto.JWKToRSAPublicKey(key)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("remote key %s is not usable", party.KeyID))
	}

	k.logger.Debug("resolved public key from JWKS endpoint",
		slog.String("party_id", party.ID),
		slog.String("kid", party.KeyID),
		slog.String("jwks_url", party.JWKSEndpoint))
	return publicKey, nil
}

// registerEndpoint registers a JWKS endpoint with the cache once. Unlike a
// startup registration there is no point deferring the fetch: the caller is
// about to look the key up, so registration waits for the initial JWKS fetch
// to complete.
func (k *KeyManager) registerEndpoint(ctx context.Context, endpoint string) error {
	k.endpointsMu.RLock()
	registered := k.registeredEndpoints[endpoint]
	k.endpointsMu.RUnlock()
	if registered {
		return nil
	}

	k.endpointsMu.Lock()
	defer k.endpointsMu.Unlock()
	if k.registeredEndpoints[endpoint] {
		return nil
	}

	err := k.jwkCache.Register(ctx, endpoint,
		jwk.WithMinInterval(k.config.JWKCacheMinRefreshInterval),
		jwk.WithMaxInterval(k.config.JWKCacheMaxRefreshInterval),
	)
	if err != nil {
		return WrapKeyManagementError(err, fmt.Sprintf("failed to register JWKS endpoint %s", endpoint))
	}

	k.registeredEndpoints[endpoint] = true
	k.logger.Info("registered JWKS endpoint",
		slog.String("jwks_url", endpoint))
	return nil
}

// UnlockPrivateKey decrypts a party's protected private key with the
// party-supplied secret. The caller must not retain the key beyond the
// signing call it was unlocked for.
func (k *KeyManager) UnlockPrivateKey(ctx context.Context, partyID, secret string) (*rsa.PrivateKey, error) {
	if partyID == "" {
		return nil, NewValidationError("party ID is required")
	}

	party, err := k.parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, WrapRegistryError(err, fmt.Sprintf("failed to look up party %s", partyID))
	}

	if party.EncryptedPrivateKey == "" {
		return nil, NewKeyUnlockError(fmt.Sprintf("party %s has no managed private key", party.ID))
	}
	if secret == "" {
		return nil, NewKeyUnlockError("unlock secret is required")
	}

	privateKey, err := crypto.DecryptPrivateKey(party.EncryptedPrivateKey, secret)
	if err != nil {
		return nil, WrapKeyUnlockError(err, fmt.Sprintf("failed to unlock private key for party %s", party.ID))
	}

	return privateKey, nil
}

// UnlockAndSign unlocks a party's private key, signs data with it and
// discards the key material. This is the only signing path the record
// services use, keeping private-key lifetime inside the custody layer.
func (k *KeyManager) UnlockAndSign(ctx context.Context, partyID, secret string, data []byte) ([]byte, error) {
	privateKey, err := k.UnlockPrivateKey(ctx, partyID, secret)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.SignPSS(privateKey, data)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to sign for party %s", partyID))
	}
	return signature, nil
}
