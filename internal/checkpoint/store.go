// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists resumable session snapshots. Each session owns
// one canonical slot on disk; saving replaces it atomically, so a reader can
// never observe a half-written checkpoint. The persisted form is explicit,
// versioned JSON — resume logic rejects unknown schema versions instead of
// guessing.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// SchemaVersion is the checkpoint wire-format version this build reads and
// writes.
const SchemaVersion = 1

// Load failure taxonomy. Callers distinguish these to decide whether to
// retry, discard, or migrate.
var (
	ErrNotFound        = errors.New("checkpoint not found")
	ErrCorrupt         = errors.New("checkpoint corrupt")
	ErrVersionMismatch = errors.New("checkpoint schema version mismatch")
)

// envelope is the self-describing persisted form.
type envelope struct {
	SchemaVersion int                 `json:"schema_version"`
	SavedAt       time.Time           `json:"saved_at"`
	Session       types.SearchSession `json:"session"`
}

// Meta is a checkpoint summary, cheap enough to build without retaining the
// accumulated result sets.
type Meta struct {
	CheckpointID string              `json:"checkpoint_id"`
	Query        string              `json:"query"`
	Status       types.SessionStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	SavedAt      time.Time           `json:"saved_at"`
}

// Store reads and writes checkpoints under one directory, one file per
// session. Writes for the same session are serialized; different sessions
// may save concurrently.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates the sessions directory if needed and returns a store.
func NewStore(cfg types.CheckpointConfig) (*Store, error) {
	dir := cfg.SessionsDir
	if dir == "" {
		return nil, fmt.Errorf("sessions directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save serializes the session snapshot and atomically replaces the session's
// canonical slot (temp file + rename). It returns the checkpoint identifier,
// which is the session id: a later Save for the same session supersedes the
// earlier one.
func (s *Store) Save(session types.SearchSession) (string, error) {
	if session.ID == "" {
		return "", fmt.Errorf("session has no id")
	}

	lock := s.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	env := envelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now().UTC(),
		Session:       session,
	}
	data, err := json.MarshalIndent(&env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding checkpoint for session %s: %w", session.ID, err)
	}

	if err := renameio.WriteFile(s.path(session.ID), data, 0o644); err != nil {
		return "", fmt.Errorf("writing checkpoint for session %s: %w", session.ID, err)
	}
	return session.ID, nil
}

// Load reads the checkpoint with the given id and returns the stored
// session. It fails with ErrNotFound, ErrCorrupt, or ErrVersionMismatch.
func (s *Store) Load(id string) (types.SearchSession, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return types.SearchSession{}, fmt.Errorf("checkpoint %s: %w", id, ErrNotFound)
		}
		return types.SearchSession{}, fmt.Errorf("reading checkpoint %s: %w", id, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return types.SearchSession{}, fmt.Errorf("checkpoint %s: %w: %v", id, ErrCorrupt, err)
	}
	if env.SchemaVersion != SchemaVersion {
		return types.SearchSession{}, fmt.Errorf("checkpoint %s has schema version %d, supported %d: %w",
			id, env.SchemaVersion, SchemaVersion, ErrVersionMismatch)
	}
	if env.Session.ID == "" {
		return types.SearchSession{}, fmt.Errorf("checkpoint %s has no session id: %w", id, ErrCorrupt)
	}
	return env.Session, nil
}

// listEnvelope decodes only the fields List needs; the accumulated result
// sets are never retained.
type listEnvelope struct {
	SchemaVersion int       `json:"schema_version"`
	SavedAt       time.Time `json:"saved_at"`
	Session       struct {
		ID    string `json:"id"`
		Query struct {
			Original string `json:"original"`
		} `json:"query"`
		Status    types.SessionStatus `json:"status"`
		CreatedAt time.Time           `json:"created_at"`
	} `json:"session"`
}

// List summarizes every readable checkpoint in the store, newest first.
// Unreadable or foreign files are skipped, not errors.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var env listEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Session.ID == "" {
			continue
		}
		metas = append(metas, Meta{
			CheckpointID: env.Session.ID,
			Query:        env.Session.Query.Original,
			Status:       env.Session.Status,
			CreatedAt:    env.Session.CreatedAt,
			SavedAt:      env.SavedAt,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].SavedAt.After(metas[j].SavedAt)
	})
	return metas, nil
}

// Delete removes a checkpoint. Deleting a checkpoint that does not exist is
// not an error.
func (s *Store) Delete(id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting checkpoint %s: %w", id, err)
	}
	return nil
}
