// Package account implements the app's deliberately small identity layer:
// named users with a salted-hash credential check, and a persisted record of
// who is signed in. It is not a security boundary.
package account

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const storeVersion = 1

const (
	usersFile   = "users.json"
	currentFile = "current_user.json"
)

var ErrBadCredentials = errors.New("name and password do not match")

// User is one registered account. PasswordHash is sha256(salt + password).
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Salt         string    `json:"salt"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type usersDoc struct {
	Version int    `json:"version"`
	Users   []User `json:"users"`
}

type currentDoc struct {
	Version int    `json:"version"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
}

// Store keeps users and the current-user record as JSON documents in dir.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create account dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Login resolves name+password into a user. An unknown name registers a new
// account on the spot; a known name must present the matching password.
func (s *Store) Login(name, password string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, errors.New("a name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadUsers()
	if err != nil {
		return User{}, err
	}
	for _, user := range doc.Users {
		if strings.EqualFold(user.Name, name) {
			if hashPassword(user.Salt, password) != user.PasswordHash {
				return User{}, ErrBadCredentials
			}
			return user, nil
		}
	}

	salt, err := newSalt()
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Salt:         salt,
		PasswordHash: hashPassword(salt, password),
		CreatedAt:    time.Now().UTC(),
	}
	doc.Users = append(doc.Users, user)
	if err := s.saveUsers(doc); err != nil {
		return User{}, err
	}
	return user, nil
}

// Lookup finds a registered account by name without a credential check.
func (s *Store) Lookup(name string) (User, bool, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadUsers()
	if err != nil {
		return User{}, false, err
	}
	for _, user := range doc.Users {
		if strings.EqualFold(user.Name, name) {
			return user, true, nil
		}
	}
	return User{}, false, nil
}

// SetCurrent persists user as the signed-in account.
func (s *Store) SetCurrent(user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := currentDoc{Version: storeVersion, UserID: user.ID, Name: user.Name}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, currentFile), data, 0o644)
}

// CurrentUser returns the persisted signed-in account, if any.
func (s *Store) CurrentUser() (User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	var current currentDoc
	if err := json.Unmarshal(data, &current); err != nil {
		return User{}, false, fmt.Errorf("parse %s: %w", currentFile, err)
	}
	if current.Version > storeVersion {
		return User{}, false, fmt.Errorf("%s is version %d, this build understands up to %d", currentFile, current.Version, storeVersion)
	}

	doc, err := s.loadUsers()
	if err != nil {
		return User{}, false, err
	}
	for _, user := range doc.Users {
		if user.ID == current.UserID {
			return user, true, nil
		}
	}
	return User{}, false, nil
}

// SignOut removes the current-user record. Accounts themselves stay.
func (s *Store) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(filepath.Join(s.dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) loadUsers() (usersDoc, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, usersFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usersDoc{Version: storeVersion}, nil
		}
		return usersDoc{}, err
	}
	var doc usersDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return usersDoc{}, fmt.Errorf("parse %s: %w", usersFile, err)
	}
	if doc.Version > storeVersion {
		return usersDoc{}, fmt.Errorf("%s is version %d, this build understands up to %d", usersFile, doc.Version, storeVersion)
	}
	return doc, nil
}

func (s *Store) saveUsers(doc usersDoc) error {
	doc.Version = storeVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, usersFile), data, 0o644)
}

func hashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

func newSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
