// Package integrity provides tamper-evidence for persisted cache payloads.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
)

// KeyEnv is the environment variable holding the signing key.
const KeyEnv = "EXTSCAN_SIGNING_KEY"

// Signer computes and verifies HMAC-SHA256 signatures over serialized
// cache payloads. A signature mismatch means the entry cannot be trusted;
// callers treat that as a cache miss, never a fatal error.
type Signer struct {
	key []byte
}

// NewSigner creates a signer with an explicit key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.ValidationError("signing key cannot be empty", nil)
	}
	return &Signer{key: key}, nil
}

// NewSignerFromEnv resolves the signing key from configuration.
// Resolution order: explicit configured key, EXTSCAN_SIGNING_KEY, then a
// machine-local key file created on first use. The derived key only
// protects against accidental modification, not a local attacker; key
// rotation is a deployment concern.
func NewSignerFromEnv(configuredKey, stateDir string) (*Signer, error) {
	if configuredKey != "" {
		return NewSigner([]byte(configuredKey))
	}
	if env := os.Getenv(KeyEnv); env != "" {
		return NewSigner([]byte(env))
	}
	key, err := loadOrCreateLocalKey(stateDir)
	if err != nil {
		return nil, err
	}
	return NewSigner(key)
}

// Sign returns the HMAC-SHA256 digest of payload.
func (s *Signer) Sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Verify reports whether sig is a valid signature for payload.
// Comparison is constant-time.
func (s *Signer) Verify(payload, sig []byte) bool {
	return hmac.Equal(s.Sign(payload), sig)
}

// loadOrCreateLocalKey reads the machine-local key file, generating a
// random one if it does not exist yet.
func loadOrCreateLocalKey(stateDir string) ([]byte, error) {
	path := filepath.Join(stateDir, "signing.key")
	if key, err := os.ReadFile(path); err == nil && len(key) > 0 {
		return key, nil
	}

	key := make([]byte, 32)
	if err := fillRandom(key); err != nil {
		return nil, errors.StoreError("failed to generate signing key", err)
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, errors.StoreError("failed to create state directory", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, errors.StoreError("failed to persist signing key", err)
	}
	return key, nil
}
