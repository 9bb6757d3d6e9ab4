package splitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/scansplitter/internal/session"
)

const (
	sessionBucketName = "session"
	exportBucketName  = "exports"
	currentSessionKey = "current"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveSession stores the current session state
	SaveSession(state session.State) error

	// LoadSession returns the stored session state, or ErrNotFound
	LoadSession() (session.State, error)

	// SaveExport saves an export manifest
	SaveExport(export *Export) error

	// GetExport retrieves an export by ID
	GetExport(id string) (*Export, error)

	// ListExports returns all exports, newest first
	ListExports() ([]*Export, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{sessionBucketName, exportBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveSession stores the current session state
func (b *BoltDB) SaveSession(state session.State) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		return tx.Bucket([]byte(sessionBucketName)).Put([]byte(currentSessionKey), data)
	})
}

// LoadSession returns the stored session state
func (b *BoltDB) LoadSession() (session.State, error) {
	var state session.State
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(sessionBucketName)).Get([]byte(currentSessionKey))
		if data == nil {
			return fmt.Errorf("session %w", ErrNotFound)
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return session.State{}, err
	}
	return state, nil
}

// SaveExport saves an export manifest
func (b *BoltDB) SaveExport(export *Export) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(export)
		if err != nil {
			return fmt.Errorf("marshaling export: %w", err)
		}
		return tx.Bucket([]byte(exportBucketName)).Put([]byte(export.ID), data)
	})
}

// GetExport retrieves an export by ID
func (b *BoltDB) GetExport(id string) (*Export, error) {
	var export *Export
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(exportBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("export %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &export)
	})
	if err != nil {
		return nil, err
	}
	return export, nil
}

// ListExports returns all exports, newest first
func (b *BoltDB) ListExports() ([]*Export, error) {
	exports := make([]*Export, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(exportBucketName)).ForEach(func(k, v []byte) error {
			var export Export
			if err := json.Unmarshal(v, &export); err != nil {
				return fmt.Errorf("unmarshaling export: %w", err)
			}
			exports = append(exports, &export)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(exports, func(i, j int) bool {
		return exports[i].CreatedAt.After(exports[j].CreatedAt)
	})
	return exports, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
