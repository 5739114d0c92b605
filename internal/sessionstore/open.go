package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/config"
	"github.com/Tsedenia-Nega/Appointment-management/internal/database"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Backend is an opened session storage plus the resources it holds.
type Backend struct {
	// Storage is nil for the in-memory backend, which fiber provides itself.
	Storage fiber.Storage

	// DB is the pool behind the postgres backend, nil otherwise.
	DB database.DBInterface

	closers []func()
}

// Close releases the storage and any pool or client behind it.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Open builds the storage named by cfg.SessionStorage. Postgres runs the
// embedded migrations first. A non-empty cfg.SessionSecret seals values.
func Open(ctx context.Context, cfg *config.Config, logger *security.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.SessionStorage {
	case config.StorageMemory:
		logger.Info("sessions: in-memory storage")
		return b, nil

	case config.StoragePostgres:
		if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		store := NewPostgresStorage(pool, 10*time.Minute)
		b.DB = pool
		b.Storage = store
		b.closers = append(b.closers, pool.Close, func() { _ = store.Close() })
		logger.Info("sessions: postgres storage")

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		store := NewRedisStorage(client, "sess:")
		b.Storage = store
		b.closers = append(b.closers, func() { _ = store.Close() })
		logger.Info("sessions: redis storage")

	default:
		return nil, fmt.Errorf("unknown session storage %q", cfg.SessionStorage)
	}

	if cfg.SessionSecret != "" {
		sealed, err := NewSealedStorage(b.Storage, cfg.SessionSecret)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Storage = sealed
	} else {
		logger.Warn("sessions: SESSION_SECRET not set, session values stored unsealed")
	}
	return b, nil
}
