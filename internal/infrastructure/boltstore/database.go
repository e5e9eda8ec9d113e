// Package boltstore keeps settings and categories in an embedded bbolt file
// for single-node deployments without postgres.
package boltstore

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	settingsBucket   = []byte("settings")
	categoriesBucket = []byte("setting_categories")
)

// Database wraps the bbolt handle shared by the repositories.
type Database struct {
	DB *bolt.DB
}

// Open initializes or opens the store at path and creates its buckets.
func Open(path string) (*Database, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{settingsBucket, categoriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Database{DB: db}, nil
}

// Close closes the underlying database.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
