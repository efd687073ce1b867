package tokenstore

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStorage is a file-backed Storage, the on-disk counterpart of browser
// local storage. It is safe for concurrent use.
type BoltStorage struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBoltStorage opens or creates the database at path. An empty bucket
// name defaults to "storage".
func OpenBoltStorage(path, bucket string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	name := []byte("storage")
	if bucket != "" {
		name = []byte(bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStorage{db: db, bucket: name}, nil
}

// Close closes the underlying database.
func (s *BoltStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value at key or ErrNotFound.
func (s *BoltStorage) Get(key string) (string, error) {
	var out string
	var exists bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		exists = true
		out = string(v)
		return nil
	}); err != nil {
		return "", err
	}
	if !exists {
		return "", ErrNotFound
	}
	return out, nil
}

// Set stores value at key.
func (s *BoltStorage) Set(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), []byte(value))
	})
}

// Remove deletes key. Removing a missing key is not an error.
func (s *BoltStorage) Remove(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}
