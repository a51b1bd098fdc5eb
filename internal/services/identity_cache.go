package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/models"
)

// IdentityStore is a durable card name -> catalog identifier mapping.
// Put is write-through: once it returns nil the binding survives a crash.
type IdentityStore interface {
	Get(name string) (string, bool)
	Put(name, catalogID string) error
	Flush() error
}

// IdentityLister is implemented by stores that can enumerate their bindings.
type IdentityLister interface {
	List(limit int) ([]models.CardIdentity, error)
}

// MemoryIdentityStore keeps bindings in a map. Used for tests and dry runs.
type MemoryIdentityStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{entries: make(map[string]string)}
}

func (s *MemoryIdentityStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.entries[name]
	return id, ok
}

func (s *MemoryIdentityStore) Put(name, catalogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = catalogID
	return nil
}

func (s *MemoryIdentityStore) Flush() error { return nil }

// Len returns the number of bindings.
func (s *MemoryIdentityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// FileIdentityStore persists bindings as one flat JSON object, rewritten in
// full on every Put. A missing or unreadable file starts an empty cache.
type FileIdentityStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]string
}

// NewFileIdentityStore loads path. It never fails: a corrupt file is logged
// and treated as empty, and the next Put overwrites it.
func NewFileIdentityStore(path string) *FileIdentityStore {
	s := &FileIdentityStore{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		zap.L().Debug("identity cache file not found, starting empty", zap.String("path", path))
	case err != nil:
		zap.L().Warn("identity cache unreadable, starting empty", zap.String("path", path), zap.Error(err))
	default:
		if err := json.Unmarshal(data, &s.entries); err != nil {
			zap.L().Warn("identity cache corrupt, starting empty", zap.String("path", path), zap.Error(err))
			s.entries = make(map[string]string)
		}
	}

	metrics.IdentityCacheSize.Set(float64(len(s.entries)))
	return s
}

func (s *FileIdentityStore) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	return id, ok
}

func (s *FileIdentityStore) Put(name, catalogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[name]
	s.entries[name] = catalogID
	if err := s.writeLocked(); err != nil {
		if existed {
			s.entries[name] = prev
		} else {
			delete(s.entries, name)
		}
		return err
	}
	metrics.IdentityCacheSize.Set(float64(len(s.entries)))
	return nil
}

func (s *FileIdentityStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

// Snapshot returns a copy of every binding.
func (s *FileIdentityStore) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// List returns bindings ordered by name, at most limit entries (0 = all).
// The file keeps no timestamps or source, so only Name and CatalogID are set.
func (s *FileIdentityStore) List(limit int) ([]models.CardIdentity, error) {
	snapshot := s.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	identities := make([]models.CardIdentity, 0, len(names))
	for _, name := range names {
		identities = append(identities, models.CardIdentity{Name: name, CatalogID: snapshot[name]})
	}
	return identities, nil
}

// writeLocked replaces the file via a temp file and rename so a crash never
// leaves half a JSON object behind.
func (s *FileIdentityStore) writeLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identity cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create identity cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write identity cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close identity cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace identity cache: %w", err)
	}
	return nil
}

// GormIdentityStore keeps bindings in the card_identities table.
type GormIdentityStore struct {
	db *gorm.DB
}

func NewGormIdentityStore(db *gorm.DB) *GormIdentityStore {
	return &GormIdentityStore{db: db}
}

func (s *GormIdentityStore) Get(name string) (string, bool) {
	var identity models.CardIdentity
	if err := s.db.Where("name = ?", name).Limit(1).Find(&identity).Error; err != nil {
		zap.L().Warn("identity lookup failed", zap.String("card", name), zap.Error(err))
		return "", false
	}
	if identity.CatalogID == "" {
		return "", false
	}
	return identity.CatalogID, true
}

func (s *GormIdentityStore) Put(name, catalogID string) error {
	identity := models.CardIdentity{
		Name:      name,
		CatalogID: catalogID,
		Source:    models.IdentitySourceSearch,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"catalog_id", "updated_at"}),
	}).Create(&identity).Error
	if err != nil {
		return fmt.Errorf("failed to save identity for %q: %w", name, err)
	}
	return nil
}

// Flush is a no-op: every Put is its own transaction.
func (s *GormIdentityStore) Flush() error { return nil }

// List returns bindings ordered by name, at most limit rows (0 = all).
func (s *GormIdentityStore) List(limit int) ([]models.CardIdentity, error) {
	var identities []models.CardIdentity
	q := s.db.Order("name")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// CachedIdentityStore fronts a backing store with a bounded LRU so repeated
// lookups in the server skip the file lock or the database.
type CachedIdentityStore struct {
	backing IdentityStore
	cache   *lru.Cache[string, string]
}

func NewCachedIdentityStore(backing IdentityStore, size int) (*CachedIdentityStore, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity LRU: %w", err)
	}
	return &CachedIdentityStore{backing: backing, cache: cache}, nil
}

func (s *CachedIdentityStore) Get(name string) (string, bool) {
	if id, ok := s.cache.Get(name); ok {
		return id, true
	}
	id, ok := s.backing.Get(name)
	if ok {
		s.cache.Add(name, id)
	}
	return id, ok
}

func (s *CachedIdentityStore) Put(name, catalogID string) error {
	if err := s.backing.Put(name, catalogID); err != nil {
		return err
	}
	s.cache.Add(name, catalogID)
	return nil
}

func (s *CachedIdentityStore) Flush() error {
	return s.backing.Flush()
}

// List delegates to the backing store when it can enumerate bindings.
func (s *CachedIdentityStore) List(limit int) ([]models.CardIdentity, error) {
	lister, ok := s.backing.(IdentityLister)
	if !ok {
		return nil, errors.New("identity store cannot list bindings")
	}
	return lister.List(limit)
}
