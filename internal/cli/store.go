package cli

import (
	"context"
	"fmt"

	"github.com/animal-health-networks/petcert/internal/custody"
	"github.com/animal-health-networks/petcert/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// openStore connects to the database configured by DATABASE_URL and returns
// the store plus a cleanup function that closes the connection pool.
//
// Commands that never touch the database (inspect) do not call this, which is
// why DATABASE_URL is optional at config load time and checked here instead.
func openStore(ctx context.Context) (*store.Postgres, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for this command")
	}

	dbCtx, cancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConnections
	poolConfig.MinConns = cfg.DBMinConnections
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(dbCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("unable to reach the database: %w", err)
	}

	appLogger.Debug("connected to PostgreSQL")

	st := store.NewPostgres(pool)
	return st, st.Close, nil
}

// newKeyManager builds the key custody layer over the given party source
// using the configured manual keys directory and JWK cache settings.
func newKeyManager(ctx context.Context, parties custody.PartySource) (*custody.KeyManager, error) {
	kmConfig := custody.NewKeyManagerConfig(
		cfg.ManualKeysDir,
		cfg.SkipJWKCache,
		cfg.JWKCacheMinRefresh,
		cfg.JWKCacheMaxRefresh,
	)
	keyManager, err := custody.NewKeyManager(ctx, parties, kmConfig, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create key manager: %w", err)
	}
	return keyManager, nil
}
