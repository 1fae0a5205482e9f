// Package secrets stores API credentials in the OS keychain via go-keyring
// (Keychain on macOS, Secret Service on Linux, Credential Manager on
// Windows). Tokens never touch the config file or the shared state file.
package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Kind selects which credential to load or save.
type Kind string

const (
	KindGitHubToken  Kind = "github-token"
	KindAnthropicKey Kind = "anthropic-key"
)

const service = "daycart"

// ErrNotFound is returned when no credential of the requested kind is stored.
var ErrNotFound = errors.New("secrets: credential not found")

// Store reads and writes credentials in the platform keychain.
type Store struct{}

// NewStore returns a keychain-backed store.
func NewStore() *Store { return &Store{} }

// Load returns the stored credential, or ErrNotFound.
func (s *Store) Load(kind Kind) (string, error) {
	secret, err := keyring.Get(service, string(kind))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secrets: load %s: %w", kind, err)
	}
	return secret, nil
}

// Save stores the credential, replacing any existing value.
func (s *Store) Save(kind Kind, secret string) error {
	if err := keyring.Set(service, string(kind), secret); err != nil {
		return fmt.Errorf("secrets: save %s: %w", kind, err)
	}
	return nil
}

// Delete removes the credential. Missing credentials are not an error.
func (s *Store) Delete(kind Kind) error {
	err := keyring.Delete(service, string(kind))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("secrets: delete %s: %w", kind, err)
	}
	return nil
}
