package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rentlink/internal/models"

	bolt "go.etcd.io/bbolt"
)

var (
	metaBucket    = []byte("meta")
	pendingBucket = []byte("pending_invite")
	cacheBucket   = []byte("invite_cache")
	sessionBucket = []byte("session")

	keySchemaVersion = []byte("schema_version")
	keyPendingInvite = []byte("record")
	keySession       = []byte("current")
)

const schemaVersion = "1"

// Store is the only durable local state: the pending invite record, the
// per-token preview cache, and the signed-in session. Each is a single
// namespaced entry overwritten wholesale.
type Store struct {
	db     *bolt.DB
	dbPath string
}

func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{metaBucket, pendingBucket, cacheBucket, sessionBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(metaBucket)
		if meta.Get(keySchemaVersion) == nil {
			if err := meta.Put(keySchemaVersion, []byte(schemaVersion)); err != nil {
				return err
			}
		}

		return nil
	})
}

// SavePendingInvite writes the single pending invite record, replacing any
// previous one. Safe to call from multiple independent flows; last writer
// wins.
func (s *Store) SavePendingInvite(inv models.PendingInvite) error {
	if inv.Value == "" {
		return fmt.Errorf("pending invite value is required")
	}
	if inv.SavedAt.IsZero() {
		inv.SavedAt = time.Now()
	}

	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to serialize pending invite: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Put(keyPendingInvite, data)
	})
}

// GetPendingInvite returns the parked invite, or nil when none exists.
func (s *Store) GetPendingInvite() (*models.PendingInvite, error) {
	var inv *models.PendingInvite
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(pendingBucket).Get(keyPendingInvite)
		if data == nil {
			return nil
		}
		var rec models.PendingInvite
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to parse pending invite: %w", err)
		}
		inv = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) ClearPendingInvite() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete(keyPendingInvite)
	})
}

// PutCachedPreview overwrites the cached preview for a token. Only a live
// successful validation should write here.
func (s *Store) PutCachedPreview(token string, preview models.PropertyPreview) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}

	data, err := json.Marshal(models.CachedPreview{
		Token:    token,
		Property: preview,
		CachedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize cached preview: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte("token:"+token), data)
	})
}

// GetCachedPreview returns the cached preview for a token, or nil when the
// token has never validated successfully on this device.
func (s *Store) GetCachedPreview(token string) (*models.CachedPreview, error) {
	var cached *models.CachedPreview
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(cacheBucket).Get([]byte("token:" + token))
		if data == nil {
			return nil
		}
		var rec models.CachedPreview
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to parse cached preview: %w", err)
		}
		cached = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (s *Store) SaveSession(sess models.Session) error {
	if sess.AccessToken == "" {
		return fmt.Errorf("session access token is required")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(keySession, data)
	})
}

func (s *Store) GetSession() (*models.Session, error) {
	var sess *models.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get(keySession)
		if data == nil {
			return nil
		}
		var rec models.Session
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to parse session: %w", err)
		}
		sess = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) ClearSession() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(keySession)
	})
}
