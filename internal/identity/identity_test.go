package identity

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateSigningKeyGeneratesOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexus", "user.key")

	key, err := LoadOrCreateSigningKey(path)
	require.NoError(t, err)
	require.Len(t, key, ed25519.PrivateKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestLoadOrCreateSigningKeyIsStableAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.key")

	first, err := LoadOrCreateSigningKey(path)
	require.NoError(t, err)

	second, err := LoadOrCreateSigningKey(path)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestNewDerivesVerifyingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.key")
	signingKey, err := LoadOrCreateSigningKey(path)
	require.NoError(t, err)

	id := New(42, "0xwallet", signingKey)
	require.Equal(t, uint64(42), id.NodeID)
	require.Equal(t, "42", id.NodeIDString())
	require.True(t, ed25519.Verify(id.VerifyingKey, []byte("msg"), id.Sign([]byte("msg"))))
}

func TestLoadOrCreateSigningKeyRejectsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.key")
	require.NoError(t, os.WriteFile(path, []byte("too-short"), 0o600))

	_, err := LoadOrCreateSigningKey(path)
	require.Error(t, err)
}
