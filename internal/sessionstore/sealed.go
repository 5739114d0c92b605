package sessionstore

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// SealedStorage encrypts every value with NaCl secretbox before handing it to
// the wrapped storage, so bearer tokens are never stored in plaintext.
// Values that fail to open read as absent.
type SealedStorage struct {
	inner fiber.Storage
	key   [32]byte
	rand  io.Reader
}

// NewSealedStorage derives the box key from secret with SHA-256.
func NewSealedStorage(inner fiber.Storage, secret string) (*SealedStorage, error) {
	if inner == nil {
		return nil, errors.New("sealed storage needs an inner storage")
	}
	if secret == "" {
		return nil, errors.New("sealed storage needs a secret")
	}
	return &SealedStorage{inner: inner, key: sha256.Sum256([]byte(secret)), rand: rand.Reader}, nil
}

// Get opens the stored box.
func (s *SealedStorage) Get(key string) ([]byte, error) {
	box, err := s.inner.Get(key)
	if err != nil || box == nil {
		return nil, err
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, nil
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, nil
	}
	return plain, nil
}

// Set seals val with a fresh random nonce stored as the box prefix.
func (s *SealedStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return err
	}
	box := secretbox.Seal(nonce[:], val, &nonce, &s.key)
	return s.inner.Set(key, box, exp)
}

// Delete removes key.
func (s *SealedStorage) Delete(key string) error { return s.inner.Delete(key) }

// Reset removes every key.
func (s *SealedStorage) Reset() error { return s.inner.Reset() }

// Close closes the wrapped storage.
func (s *SealedStorage) Close() error { return s.inner.Close() }
