// Package sessionstore provides fiber.Storage backends for the session store.
// All backends return (nil, nil) from Get for a missing or expired key, which
// the fiber session middleware treats as a fresh session.
package sessionstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/database"
	"github.com/jackc/pgx/v5"
)

const opTimeout = 5 * time.Second

// PostgresStorage keeps sessions in the sessions table created by the
// embedded migrations. Rows carry an absolute unix expiry; 0 never expires.
type PostgresStorage struct {
	db  database.DBInterface
	now func() time.Time

	gcInterval time.Duration
	done       chan struct{}
	once       sync.Once
}

// NewPostgresStorage wraps db. When gcInterval > 0 a goroutine deletes expired
// rows on that interval until Close.
func NewPostgresStorage(db database.DBInterface, gcInterval time.Duration) *PostgresStorage {
	s := &PostgresStorage{
		db:         db,
		now:        time.Now,
		gcInterval: gcInterval,
		done:       make(chan struct{}),
	}
	if gcInterval > 0 {
		go s.gcLoop()
	}
	return s
}

// Get returns the stored value or nil when absent or expired.
func (s *PostgresStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		data      []byte
		expiresAt int64
	)
	err := s.db.QueryRow(ctx, "SELECT data, expires_at FROM sessions WHERE key = $1", key).Scan(&data, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expiresAt != 0 && expiresAt <= s.now().Unix() {
		return nil, nil
	}
	return data, nil
}

// Set upserts key. A zero exp stores the row without expiry.
func (s *PostgresStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var expiresAt int64
	if exp > 0 {
		expiresAt = s.now().Add(exp).Unix()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (key, data, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		key, val, expiresAt)
	return err
}

// Delete removes key.
func (s *PostgresStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE key = $1", key)
	return err
}

// Reset removes every session.
func (s *PostgresStorage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, "DELETE FROM sessions")
	return err
}

// DeleteExpired removes rows whose expiry has passed and returns how many.
func (s *PostgresStorage) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at <> 0 AND expires_at <= $1", s.now().Unix())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Close stops the expiry sweep. The pool is owned by the caller.
func (s *PostgresStorage) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *PostgresStorage) gcLoop() {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			_, _ = s.DeleteExpired(ctx)
			cancel()
		case <-s.done:
			return
		}
	}
}
