// Package store implements the workspace resource database: a single JSON
// document file holding every resource, with filter queries, prefix lookup,
// and a staged batch flush for relation edits.
//
// The database is single-writer. Nothing here coordinates concurrent writers
// across processes; a shared workspace relies on filesystem permissions only.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"dmf/internal/filter"
	"dmf/internal/logging"
	"dmf/internal/resource"
)

// Schema version written into the database file.
const schemaVersion = 1

var (
	// ErrExists is returned by Add when the resource id is already present.
	ErrExists = errors.New("resource already exists")
	// ErrNotFound is returned by Remove for an unknown id.
	ErrNotFound = errors.New("resource not found")
)

// database is the on-disk shape of resourcedb.json.
type database struct {
	Schema    int                           `json:"schema"`
	Resources map[string]*resource.Resource `json:"resources"`
}

// Store is the in-memory view of one resource database file.
type Store struct {
	mu      sync.RWMutex
	path    string
	byID    map[string]*resource.Resource
	pending map[string]*resource.Resource
}

// Open loads the database at path, creating an empty one if the file does
// not exist yet.
func Open(path string) (*Store, error) {
	logging.Store("Opening resource database: %s", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s := &Store{
		path:    path,
		byID:    make(map[string]*resource.Resource),
		pending: make(map[string]*resource.Resource),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(); err != nil {
			return nil, err
		}
		logging.StoreDebug("Created empty database at %s", path)
		return s, nil
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	logging.StoreDebug("Loaded %d resources", len(s.byID))
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// load replaces the in-memory view with the file contents. Caller must not
// hold the lock.
func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read database %s: %w", s.path, err)
	}
	var db database
	if err := json.Unmarshal(raw, &db); err != nil {
		return fmt.Errorf("failed to parse database %s: %w", s.path, err)
	}
	if db.Resources == nil {
		db.Resources = make(map[string]*resource.Resource)
	}

	s.mu.Lock()
	s.byID = db.Resources
	// Staged pointers reference documents from the replaced view; flushing
	// them would clobber whatever was just read.
	s.pending = make(map[string]*resource.Resource)
	s.mu.Unlock()
	return nil
}

// Reload re-reads the database file, discarding unsaved in-memory state.
// Used by the watcher when another process rewrote the file.
func (s *Store) Reload() error {
	logging.StoreDebug("Reloading database from %s", s.path)
	return s.load()
}

// save writes the database atomically (temp file + rename). Caller must hold
// at least a read lock, or have exclusive access.
func (s *Store) save() error {
	db := database{Schema: schemaVersion, Resources: s.byID}
	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode database: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace database: %w", err)
	}
	return nil
}

// Add validates and persists a new resource. The id must not exist yet.
func (s *Store) Add(r *resource.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, r.ID)
	}
	s.byID[r.ID] = r
	if err := s.save(); err != nil {
		delete(s.byID, r.ID)
		return err
	}
	logging.Store("Added resource %s (type=%s name=%q)", r.ID, r.Type, r.Name())
	return nil
}

// Get returns the resource with the exact id.
func (s *Store) Get(id string) (*resource.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// All returns every resource in stable order (creation time, then id).
func (s *Store) All() []*resource.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []*resource.Resource {
	out := make([]*resource.Resource, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindByIDPrefix returns the resources whose id starts with prefix, in
// stable order. An empty result is not an error.
func (s *Store) FindByIDPrefix(prefix string) []*resource.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range s.sortedLocked() {
		if len(prefix) <= len(r.ID) && r.ID[:len(prefix)] == prefix {
			out = append(out, r)
		}
	}
	logging.StoreDebug("FindByIDPrefix(%q) -> %d", prefix, len(out))
	return out
}

// Find returns the resources matching the filter, in stable order.
func (s *Store) Find(f filter.Filter, opts filter.Options) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range s.sortedLocked() {
		doc, err := r.Doc()
		if err != nil {
			return nil, err
		}
		ok, err := filter.Matches(doc, f, opts)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	logging.StoreDebug("Find(%v) -> %d", f, len(out))
	return out, nil
}

// FindOne returns the first match in stable order, or nil when nothing
// matches. Ambiguity is the caller's to resolve.
func (s *Store) FindOne(f filter.Filter, opts filter.Options) (*resource.Resource, error) {
	rs, err := s.Find(f, opts)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return rs[0], nil
}

// FindByName is the name/alias shortcut: resources whose alias list contains
// the given name.
func (s *Store) FindByName(name string) ([]*resource.Resource, error) {
	return s.Find(filter.Filter{"aliases": name}, filter.Options{})
}

// Remove deletes the resource with the exact id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.byID, id)
	delete(s.pending, id)
	if err := s.save(); err != nil {
		s.byID[id] = r
		return err
	}
	logging.Store("Removed resource %s", id)
	return nil
}

// RemoveMatching deletes every resource matching the filter and returns how
// many were removed. Zero matches is not an error.
func (s *Store) RemoveMatching(f filter.Filter, opts filter.Options) (int, error) {
	matches, err := s.Find(f, opts)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range matches {
		delete(s.byID, r.ID)
		delete(s.pending, r.ID)
	}
	if len(matches) > 0 {
		if err := s.save(); err != nil {
			return 0, err
		}
	}
	logging.Store("Removed %d resources by filter", len(matches))
	return len(matches), nil
}

// Stage marks resources as carrying unsaved relation edits. Nothing touches
// the file until Update.
func (s *Store) Stage(rs ...*resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		s.pending[r.ID] = r
	}
	logging.StoreDebug("Staged %d resources (pending=%d)", len(rs), len(s.pending))
}

// Update writes back all staged resources in one batch and clears the
// pending set. Resources staged but since removed are skipped.
func (s *Store) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	n := 0
	for id, r := range s.pending {
		if _, ok := s.byID[id]; ok {
			r.Touch()
			s.byID[id] = r
			n++
		}
	}
	s.pending = make(map[string]*resource.Resource)
	if err := s.save(); err != nil {
		return err
	}
	logging.Store("Flushed %d staged resources", n)
	return nil
}

// PendingCount reports how many resources await Update.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Count returns the number of resources.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// CountByType returns resource counts keyed by type.
func (s *Store) CountByType() map[resource.Type]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[resource.Type]int)
	for _, r := range s.byID {
		out[r.Type]++
	}
	return out
}
