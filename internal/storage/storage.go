package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// OpenAIKeyName is the fixed name the completion API key is stored under.
const OpenAIKeyName = "ibrl_api_key"

// ErrCredentialNotFound is returned when no value is stored under a name.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore persists named secrets. Conversations are never stored.
type CredentialStore interface {
	// Credential returns the value stored under name.
	Credential(ctx context.Context, name string) (string, error)

	// SetCredential stores value under name, replacing any previous value.
	SetCredential(ctx context.Context, name, value string) error

	// DeleteCredential removes name. Removing a missing name is not an error.
	DeleteCredential(ctx context.Context, name string) error

	// Close releases resources.
	Close() error
}

// Transcript describes an in-memory conversation for export.
type Transcript struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Persona   string    `json:"persona"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// StaticCredentials is an in-memory CredentialStore.
type StaticCredentials struct {
	mu     sync.Mutex
	values map[string]string
}

// NewStaticCredentials returns a store seeded with values.
func NewStaticCredentials(values map[string]string) *StaticCredentials {
	s := &StaticCredentials{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *StaticCredentials) Credential(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	if !ok {
		return "", ErrCredentialNotFound
	}
	return v, nil
}

func (s *StaticCredentials) SetCredential(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	return nil
}

func (s *StaticCredentials) DeleteCredential(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
	return nil
}

func (s *StaticCredentials) Close() error { return nil }

// WithDefaults answers lookups from defaults when primary has no value for a
// name. Writes go to primary only, so a default shows through again after
// DeleteCredential.
func WithDefaults(primary CredentialStore, defaults map[string]string) CredentialStore {
	return &layered{CredentialStore: primary, defaults: defaults}
}

type layered struct {
	CredentialStore
	defaults map[string]string
}

func (l *layered) Credential(ctx context.Context, name string) (string, error) {
	v, err := l.CredentialStore.Credential(ctx, name)
	if errors.Is(err, ErrCredentialNotFound) {
		if d := l.defaults[name]; d != "" {
			return d, nil
		}
	}
	return v, err
}
