package sessionstore

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStorage is a minimal fiber.Storage used to inspect what gets persisted.
type mapStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapStorage() *mapStorage { return &mapStorage{data: map[string][]byte{}} }

func (m *mapStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mapStorage) Set(key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), val...)
	return nil
}

func (m *mapStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapStorage) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	return nil
}

func (m *mapStorage) Close() error { return nil }

func TestSealedStorage_RoundTrip(t *testing.T) {
	inner := newMapStorage()
	s, err := NewSealedStorage(inner, "correct horse battery staple")
	require.NoError(t, err)

	secret := []byte(`{"token":"eyJhbGciOi..."}`)
	require.NoError(t, s.Set("abc", secret, time.Hour))

	stored := inner.data["abc"]
	assert.False(t, bytes.Contains(stored, []byte("token")), "plaintext must not reach storage")
	assert.Len(t, stored, nonceSize+len(secret)+16)

	got, err := s.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestSealedStorage_FreshNonce(t *testing.T) {
	inner := newMapStorage()
	s, err := NewSealedStorage(inner, "k")
	require.NoError(t, err)

	require.NoError(t, s.Set("a", []byte("same"), 0))
	require.NoError(t, s.Set("b", []byte("same"), 0))
	assert.NotEqual(t, inner.data["a"], inner.data["b"])
}

func TestSealedStorage_TamperedReadsAbsent(t *testing.T) {
	inner := newMapStorage()
	s, err := NewSealedStorage(inner, "k")
	require.NoError(t, err)

	require.NoError(t, s.Set("abc", []byte("payload"), 0))
	inner.data["abc"][len(inner.data["abc"])-1] ^= 0xff

	got, err := s.Get("abc")
	assert.NoError(t, err)
	assert.Nil(t, got)

	inner.data["short"] = []byte("tiny")
	got, err = s.Get("short")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSealedStorage_WrongSecret(t *testing.T) {
	inner := newMapStorage()
	a, _ := NewSealedStorage(inner, "first")
	b, _ := NewSealedStorage(inner, "second")

	require.NoError(t, a.Set("abc", []byte("payload"), 0))
	got, err := b.Get("abc")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSealedStorage_RandFailure(t *testing.T) {
	s, err := NewSealedStorage(newMapStorage(), "k")
	require.NoError(t, err)
	s.rand = failingReader{}

	assert.Error(t, s.Set("abc", []byte("payload"), 0))
}

func TestNewSealedStorage_Invalid(t *testing.T) {
	_, err := NewSealedStorage(nil, "k")
	assert.Error(t, err)
	_, err = NewSealedStorage(newMapStorage(), "")
	assert.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
