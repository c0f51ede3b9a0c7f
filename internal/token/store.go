package token

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned when no credential is stored for a client id.
var ErrNotFound = errors.New("token: no credential for client id")

// Token is a Strava OAuth token response as persisted on disk.
type Token struct {
	TokenType    string  `json:"token_type"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"` // unix seconds
	Athlete      Athlete `json:"athlete"`
}

// Athlete is the athlete identity embedded in a token exchange response.
type Athlete struct {
	ID int64 `json:"id"`
}

// Expired reports whether the access token is expired or about to expire.
func (t Token) Expired() bool {
	return time.Until(time.Unix(t.ExpiresAt, 0)) <= 60*time.Second
}

// Credential is the stored record for one API client id.
type Credential struct {
	Token Token `json:"token"`
}

// Store persists credentials keyed by client id in a single JSON file.
// The file is the sole source of truth; writes are serialized and replace
// the whole file atomically so a crash never leaves a partial snapshot.
type Store struct {
	path string

	mu     sync.Mutex
	tokens map[string]Credential
}

// Open loads the credentials file at path. A missing or malformed file
// yields an empty store rather than a startup failure.
func Open(path string) *Store {
	s := &Store{path: path, tokens: make(map[string]Credential)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.tokens); err != nil {
		s.tokens = make(map[string]Credential)
	}
	return s
}

// Get returns the credential for a client id.
func (s *Store) Get(clientID string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.tokens[clientID]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

// Save stores the token for a client id and flushes the file. A nil token
// removes the client's record (de-authorization).
func (s *Store) Save(clientID string, tok *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == nil {
		delete(s.tokens, clientID)
	} else {
		s.tokens[clientID] = Credential{Token: *tok}
	}
	return s.flushLocked()
}

// flushLocked writes the whole token map with write-then-replace semantics.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing tokens: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}
