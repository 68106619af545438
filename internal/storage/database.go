package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/logger"
	bolt "go.etcd.io/bbolt"
)

type DB struct {
	DB *bolt.DB
}

// Open opens (creating if needed) the bbolt file at path.
func Open(path string) (*DB, error) {
	logger.Infof("opening history database %s", path)

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &DB{DB: db}, nil
}

func (db *DB) Close() error {
	logger.Infof("closing history database")

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("close bolt db: %w", err)
	}
	return nil
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
