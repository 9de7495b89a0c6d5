package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

const fileVersion = 1

type fileDoc struct {
	Version   int               `json:"version"`
	Favorites []phrase.Favorite `json:"favorites"`
}

// FileStore keeps one JSON document per user under its directory. Lists are
// stored newest-first; Add prepends.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create favorites dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, "favorites-"+sanitizeID(userID)+".json")
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func (s *FileStore) load(userID string) (fileDoc, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileDoc{Version: fileVersion}, nil
		}
		return fileDoc{}, err
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("favorites file corrupt: %w", err)
	}
	if doc.Version > fileVersion {
		// Fail closed instead of silently mangling a newer format.
		return fileDoc{}, fmt.Errorf("favorites file version %d is newer than this build supports", doc.Version)
	}
	doc.Version = fileVersion
	return doc, nil
}

func (s *FileStore) save(userID string, doc fileDoc) error {
	doc.Version = fileVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(userID), data, 0o644)
}

// List returns the user's favorites, newest first.
func (s *FileStore) List(ctx context.Context, userID string) ([]phrase.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	out := make([]phrase.Favorite, len(doc.Favorites))
	copy(out, doc.Favorites)
	return out, nil
}

// Get looks a favorite up by key.
func (s *FileStore) Get(userID, key string) (phrase.Favorite, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return phrase.Favorite{}, false, err
	}
	for _, fav := range doc.Favorites {
		if fav.Key == key {
			return fav, true, nil
		}
	}
	return phrase.Favorite{}, false, nil
}

// Add stores a favorite. A duplicate key replaces the existing entry in place
// and never changes the count; a full list rejects the add with ErrCapacity.
func (s *FileStore) Add(ctx context.Context, userID string, fav phrase.Favorite) (*phrase.AudioRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	for i, existing := range doc.Favorites {
		if existing.Key == fav.Key {
			doc.Favorites[i] = fav
			if err := s.save(userID, doc); err != nil {
				return nil, err
			}
			return fav.Audio, nil
		}
	}
	if len(doc.Favorites) >= Cap {
		return nil, ErrCapacity
	}
	doc.Favorites = append([]phrase.Favorite{fav}, doc.Favorites...)
	if err := s.save(userID, doc); err != nil {
		return nil, err
	}
	return fav.Audio, nil
}

// Remove deletes by key and reports whether anything was removed.
func (s *FileStore) Remove(ctx context.Context, userID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return false, err
	}
	kept := doc.Favorites[:0]
	removed := false
	for _, fav := range doc.Favorites {
		if fav.Key == key {
			removed = true
			continue
		}
		kept = append(kept, fav)
	}
	if !removed {
		return false, nil
	}
	doc.Favorites = kept
	if err := s.save(userID, doc); err != nil {
		return false, err
	}
	return true, nil
}

// Replace rewrites the user's whole list, newest first. Sync uses it to apply
// a merged result.
func (s *FileStore) Replace(userID string, favorites []phrase.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(userID, fileDoc{Version: fileVersion, Favorites: favorites})
}

// Healthy always holds for the local store: if the directory vanished, every
// other call reports the real error.
func (s *FileStore) Healthy(ctx context.Context) bool {
	return true
}
