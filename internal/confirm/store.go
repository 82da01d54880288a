package confirm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/ghgate/internal/policy"
)

const (
	// DefaultTTL is how long a confirmation token stays valid by default.
	DefaultTTL = 10 * time.Minute
	// MaxTTL is the longest validity a token may be created with.
	MaxTTL = 1 * time.Hour

	idPrefix = "cf-"
)

// validID matches alphanumeric and dash characters only (cf-<hex>).
var validID = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// validateID rejects IDs that could escape the store directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("id must not contain '..'")
	}
	if !validID.MatchString(id) {
		return fmt.Errorf("id contains invalid characters")
	}
	return nil
}

// Token is a single-use confirmation for one destructive operation,
// optionally pinned to a target such as "#42" or a branch name.
type Token struct {
	ID        string     `json:"id"`
	Operation string     `json:"operation"`
	Target    string     `json:"target,omitempty"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// ActiveAt reports whether the token is unused, unrevoked and unexpired at now.
func (t *Token) ActiveAt(now time.Time) bool {
	if t.UsedAt != nil || t.RevokedAt != nil {
		return false
	}
	return now.Before(t.ExpiresAt)
}

// Covers reports whether the token authorizes operation on target.
// A token without a target covers every target of its operation.
func (t *Token) Covers(operation, target string) bool {
	if t.Operation != operation {
		return false
	}
	return t.Target == "" || t.Target == target
}

// Store keeps confirmation tokens as one JSON file each.
type Store struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewStore creates a Store backed by dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create confirm directory: %w", err)
	}
	return &Store{dir: dir, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DefaultDir returns ~/.ghgate/confirm.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ghgate-confirm")
	}
	return filepath.Join(home, ".ghgate", "confirm")
}

// Create issues a token for a destructive operation. A reason is mandatory.
func (s *Store) Create(operation, target, reason string, ttl time.Duration) (*Token, error) {
	if !policy.IsKnown(operation) {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
	if tier := policy.TierOf(operation); tier != policy.Destructive {
		return nil, fmt.Errorf("operation %s is %s; confirmation tokens only apply to destructive operations", operation, tier)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("confirmation reason is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		return nil, fmt.Errorf("confirmation ttl %s exceeds maximum %s", ttl, MaxTTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	token := &Token{
		ID:        id,
		Operation: operation,
		Target:    target,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.writeAtomic(s.path(id), token); err != nil {
		return nil, fmt.Errorf("failed to write token: %w", err)
	}
	return token, nil
}

// Get loads a token by id.
func (s *Store) Get(id string) (*Token, error) {
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid token id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// Consume marks the token used, provided it is active and covers
// operation on target.
func (s *Store) Consume(id, operation, target string) (*Token, error) {
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid token id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.read(id)
	if err != nil {
		return nil, fmt.Errorf("token %q not found", id)
	}
	now := s.now()
	if !token.ActiveAt(now) {
		return nil, fmt.Errorf("token %q is not active", id)
	}
	if !token.Covers(operation, target) {
		scope := token.Operation
		if token.Target != "" {
			scope += " " + token.Target
		}
		return nil, fmt.Errorf("token %q is scoped to %s", id, scope)
	}

	token.UsedAt = &now
	if err := s.writeAtomic(s.path(id), token); err != nil {
		return nil, err
	}
	return token, nil
}

// Revoke marks a token as revoked.
func (s *Store) Revoke(id string) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("invalid token id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.read(id)
	if err != nil {
		return fmt.Errorf("token %q not found: %w", id, err)
	}
	if token.RevokedAt != nil {
		return fmt.Errorf("token %q already revoked", id)
	}
	now := s.now()
	token.RevokedAt = &now
	return s.writeAtomic(s.path(id), token)
}

// List returns all tokens ordered by creation time.
func (s *Store) List() ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	var tokens []Token
	for _, id := range ids {
		token, err := s.read(id)
		if err != nil {
			continue
		}
		tokens = append(tokens, *token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}

// Cleanup removes used, revoked and expired token files.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.ids()
	if err != nil {
		return err
	}
	now := s.now()
	var errs []error
	for _, id := range ids {
		token, err := s.read(id)
		if err != nil {
			continue
		}
		if !token.ActiveAt(now) {
			if err := os.Remove(s.path(id)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) read(id string) (*Token, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) writeAtomic(path string, token *Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return idPrefix + id.String(), nil
}
