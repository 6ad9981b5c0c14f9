// Package runstore keeps a history of training runs in a BoltDB file.
//
// Every run is stored as JSON under its ID in the runs bucket. Runs are
// listed in start order, newest first.
package runstore

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

const runsBucket = "runs"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one recorded training run.
type Run struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Params     string        `json:"params"`
	Iterations int           `json:"iterations"`
	NumClasses int           `json:"num_classes"`
	// Scores holds the final score per dataset label, then metric name.
	Scores map[string]map[string]float64 `json:"scores,omitempty"`
	// Error is set when the run failed.
	Error string `json:"error,omitempty"`
}

// NewRun returns a run with a fresh ID, started now.
func NewRun(name string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: time.Now().UTC(),
	}
}

// Store is a run history file.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the history file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening run history %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating runs bucket")
	}
	return &Store{db: db}, nil
}

// Close closes the history file.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores r, replacing any run with the same ID.
func (s *Store) Put(r *Run) error {
	if r.ID == "" {
		return errors.NewConfigError("id", "run has no ID", nil)
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return errors.NewConfigError("id", "run ID is not a UUID", r.ID)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Put([]byte(r.ID), data)
	})
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (*Run, error) {
	var r Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(id))
		if data == nil {
			return errors.Wrapf(ErrNotFound, "run %s", id)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "unmarshal run %s", k)
			}
			runs = append(runs, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
