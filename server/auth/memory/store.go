package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cyp0633/chorecal/server/auth"
)

// Store implements an in-memory token authenticator. Each client name maps
// to one shared secret.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]string // map[client]token
	logger *slog.Logger
}

// New creates a new in-memory token store
func New(opts ...Option) *Store {
	s := &Store{
		tokens: make(map[string]string),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AddToken registers the shared secret of a client.
func (s *Store) AddToken(client, token string) error {
	if client == "" || token == "" {
		return fmt.Errorf("client and token are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[client]; exists {
		s.logger.Warn("failed to add token: client already exists",
			"client", client)
		return fmt.Errorf("client already exists: %s", client)
	}
	s.tokens[client] = token

	s.logger.Info("token added", "client", client)
	return nil
}

// Authenticate implements auth.Authenticator
func (s *Store) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for client, token := range s.tokens {
		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(creds.Token)) == 1 {
			s.logger.Debug("authentication successful", "client", client)
			return &auth.Principal{ID: client}, nil
		}
	}

	s.logger.Info("authentication failed: unknown token")
	return nil, &auth.Error{
		Type:    auth.ErrInvalidCredentials,
		Message: "invalid token",
	}
}
