// Package integrity tests
package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	signer, err := NewSigner([]byte("test-key"))
	require.NoError(t, err)

	payload := []byte(`{"publisher":"example","name":"tool","risk_level":"low"}`)
	sig := signer.Sign(payload)

	assert.True(t, signer.Verify(payload, sig))
}

func TestVerifyTamperedPayload(t *testing.T) {
	signer, err := NewSigner([]byte("test-key"))
	require.NoError(t, err)

	payload := []byte(`{"risk_level":"low"}`)
	sig := signer.Sign(payload)

	tampered := []byte(`{"risk_level":"critical"}`)
	assert.False(t, signer.Verify(tampered, sig))
}

func TestVerifyWrongKey(t *testing.T) {
	a, err := NewSigner([]byte("key-a"))
	require.NoError(t, err)
	b, err := NewSigner([]byte("key-b"))
	require.NoError(t, err)

	payload := []byte("payload")
	assert.False(t, b.Verify(payload, a.Sign(payload)))
}

func TestEmptyKeyRejected(t *testing.T) {
	_, err := NewSigner(nil)
	assert.Error(t, err)
}

func TestSignerFromEnvExplicitKey(t *testing.T) {
	signer, err := NewSignerFromEnv("configured-key", t.TempDir())
	require.NoError(t, err)

	want, err := NewSigner([]byte("configured-key"))
	require.NoError(t, err)
	payload := []byte("payload")
	assert.True(t, want.Verify(payload, signer.Sign(payload)))
}

func TestSignerFromEnvVariable(t *testing.T) {
	t.Setenv(KeyEnv, "env-key")

	signer, err := NewSignerFromEnv("", t.TempDir())
	require.NoError(t, err)

	want, _ := NewSigner([]byte("env-key"))
	payload := []byte("payload")
	assert.True(t, want.Verify(payload, signer.Sign(payload)))
}

func TestSignerFromEnvLocalKeyPersists(t *testing.T) {
	t.Setenv(KeyEnv, "")
	dir := t.TempDir()

	first, err := NewSignerFromEnv("", dir)
	require.NoError(t, err)

	// Key file is created with restrictive permissions
	info, err := os.Stat(filepath.Join(dir, "signing.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second signer picks up the same key
	second, err := NewSignerFromEnv("", dir)
	require.NoError(t, err)

	payload := []byte("payload")
	assert.True(t, second.Verify(payload, first.Sign(payload)))
}
