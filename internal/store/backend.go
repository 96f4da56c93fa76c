package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Backend persists the encoded snapshot. Read returns (nil, nil) when no
// snapshot has been written yet.
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

// Backend kinds accepted by OpenBackend.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// OpenBackend opens the snapshot backend of the given kind inside dir.
func OpenBackend(kind, dir string) (Backend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileBackend(filepath.Join(dir, metaFileName)), nil
	case BackendBolt:
		return NewBoltBackend(filepath.Join(dir, boltFileName))
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", kind)
	}
}

// FileBackend stores the snapshot as a plain JSON file.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Read() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Write replaces the file wholesale by renaming a fully written temp file
// over it.
func (b *FileBackend) Write(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, metaFileName+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}

func (b *FileBackend) Close() error { return nil }

var (
	bucketMeta  = []byte("meta")
	keySnapshot = []byte("snapshot")
)

// BoltBackend stores the snapshot in a single BoltDB key.
type BoltBackend struct {
	db *bolt.DB
}

func NewBoltBackend(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Read() ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keySnapshot); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}

func (b *BoltBackend) Write(data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySnapshot, data)
	})
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
