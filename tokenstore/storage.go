package tokenstore

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Storage.Get when the key is absent.
var ErrNotFound = errors.New("tokenstore: not found")

// Storage is a persistent string key-value medium.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// StorageStore keeps the token under one key of a Storage. Storage errors
// are logged and read as "no token".
type StorageStore struct {
	storage Storage
	key     string
	logger  logrus.FieldLogger
}

// NewStorageStore returns a StorageStore using key. logger may be nil.
func NewStorageStore(storage Storage, key string, logger logrus.FieldLogger) *StorageStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StorageStore{storage: storage, key: key, logger: logger.WithField("token_key", key)}
}

// Token returns the stored token, or "" when absent or unreadable.
func (s *StorageStore) Token() string {
	v, err := s.storage.Get(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.WithError(err).Warn("reading token from storage")
		}
		return ""
	}
	return v
}

// SetToken writes the token, or removes the key when token is empty.
func (s *StorageStore) SetToken(token string) {
	var err error
	if token == "" {
		err = s.storage.Remove(s.key)
	} else {
		err = s.storage.Set(s.key, token)
	}
	if err != nil {
		s.logger.WithError(err).Warn("writing token to storage")
	}
}

// MemoryStorage is a Storage held in a map.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// Get returns the value at key or ErrNotFound.
func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value at key.
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
