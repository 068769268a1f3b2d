package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	secretService              = "courtlens"
	secretAccountCourtListener = "courtlistener_api_token"
	secretAccountAPI           = "api_token"
)

// Keychain reads and writes secrets in the platform secret store.
type Keychain struct{}

func NewKeychain() Keychain {
	return Keychain{}
}

// GetAPIToken returns the bearer token local clients must present to the
// HTTP server. A token is generated and persisted on first use.
func (Keychain) GetAPIToken() (string, error) {
	if out, err := keychainGet(secretService, secretAccountAPI); err == nil {
		if tok := strings.TrimSpace(string(out)); tok != "" {
			return tok, nil
		}
	}

	tok := uuid.NewString()
	if err := keychainSet(secretService, secretAccountAPI, tok); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return tok, nil
}

// SetCourtListenerToken persists the upstream CourtListener token so
// later loads no longer need the environment variable.
func (Keychain) SetCourtListenerToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	return keychainSet(secretService, secretAccountCourtListener, token)
}
