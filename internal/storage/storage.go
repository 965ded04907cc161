// Package storage provides persistent data storage for the prediction
// service. It uses BoltDB as the underlying engine to store the game history
// the feature pipeline draws from and the versioned model artifacts the
// predictor persists and reloads.
//
// Games are keyed "date_gameID" so a cursor scan returns them in
// chronological order. Model artifacts are stored as one opaque JSON blob per
// version with a separate pointer to the active version; classifier state,
// scaling state and feature schema always travel together inside the blob.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/model"
)

const (
	gamesBucket  = "games"  // Bucket for game records
	modelsBucket = "models" // Bucket for versioned model artifacts
	metaBucket   = "meta"   // Bucket for the active-version pointer

	currentKey = "current_model"

	versionLayout = "20060102-150405.000000000"
)

// ErrNoModel is returned by LoadModel when nothing has been saved yet. It is
// distinct from a corruption error: callers may treat it as a cold start.
var ErrNoModel = errors.New("no model artifact stored")

// Store provides persistent storage for game history and model artifacts.
type Store struct {
	db *bbolt.DB
}

// New creates a storage instance under dataPath, initializing the database
// and its buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "predictor-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{gamesBucket, modelsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreGame stores a game record keyed by date and game id. Records failing
// the structural contract are rejected, not stored.
func (s *Store) StoreGame(rec games.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(gamesBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal game record: %w", err)
		}

		return b.Put([]byte(gameKey(&rec)), data)
	})
}

// Games returns every stored game in chronological order. Records that no
// longer unmarshal are skipped rather than failing the whole scan.
func (s *Store) Games() ([]games.Record, error) {
	var out []games.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(gamesBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec games.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			out = append(out, rec)
		}
		return nil
	})

	return out, err
}

// GamesBetween returns games whose date falls in [start, end], inclusive,
// in chronological order. Dates use the games.DateLayout format.
func (s *Store) GamesBetween(start, end string) ([]games.Record, error) {
	var out []games.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(gamesBucket)).Cursor()
		startKey := []byte(start)
		endKey := []byte(end + "_\xff")

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var rec games.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			out = append(out, rec)
		}
		return nil
	})

	return out, err
}

// GameCount returns the number of stored games.
func (s *Store) GameCount() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(gamesBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func gameKey(rec *games.Record) string {
	id := rec.GameID
	if id == "" {
		id = rec.HomeTeam.ID + "-" + rec.AwayTeam.ID
	}
	return rec.Date + "_" + id
}

// SaveModel persists an artifact as a new version and makes it the active
// one. The version is assigned here when the artifact does not carry one.
// Write failures surface to the caller; nothing is partially applied because
// both writes share one transaction.
func (s *Store) SaveModel(a *model.Artifact) error {
	if a.Version == "" {
		a.Version = time.Now().UTC().Format(versionLayout)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(modelsBucket)).Put([]byte(a.Version), data); err != nil {
			return fmt.Errorf("write artifact %s: %w", a.Version, err)
		}
		if err := tx.Bucket([]byte(metaBucket)).Put([]byte(currentKey), []byte(a.Version)); err != nil {
			return fmt.Errorf("activate artifact %s: %w", a.Version, err)
		}
		return nil
	})
}

// LoadModel returns the active model artifact. ErrNoModel means no save has
// happened yet; any other error indicates corruption or an I/O failure.
func (s *Store) LoadModel() (*model.Artifact, error) {
	var artifact *model.Artifact

	err := s.db.View(func(tx *bbolt.Tx) error {
		version := tx.Bucket([]byte(metaBucket)).Get([]byte(currentKey))
		if version == nil {
			return ErrNoModel
		}

		data := tx.Bucket([]byte(modelsBucket)).Get(version)
		if data == nil {
			return fmt.Errorf("active version %s has no stored artifact", version)
		}

		var a model.Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("unmarshal artifact %s: %w", version, err)
		}
		artifact = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// ModelVersions lists stored artifact versions, newest first.
func (s *Store) ModelVersions() ([]string, error) {
	var versions []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(modelsBucket)).Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			versions = append(versions, string(k))
		}
		return nil
	})
	return versions, err
}

// ActivateModelVersion points the current marker at an existing version.
func (s *Store) ActivateModelVersion(version string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(modelsBucket)).Get([]byte(version)) == nil {
			return fmt.Errorf("version %s not found", version)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(currentKey), []byte(version))
	})
}

// RollbackModel activates the version preceding the current one. It fails
// when no earlier version exists.
func (s *Store) RollbackModel() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		current := meta.Get([]byte(currentKey))
		if current == nil {
			return ErrNoModel
		}

		c := tx.Bucket([]byte(modelsBucket)).Cursor()
		k, _ := c.Seek(current)
		if k == nil || !bytes.Equal(k, current) {
			return fmt.Errorf("active version %s not found", current)
		}
		prev, _ := c.Prev()
		if prev == nil {
			return fmt.Errorf("no version precedes %s", current)
		}
		return meta.Put([]byte(currentKey), prev)
	})
}
