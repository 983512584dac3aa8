package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	wallet string
	err    error
}

func (f fakeLookup) GetNode(nodeID string) (string, error) { return f.wallet, f.err }

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	f := &File{Environment: "production", UserID: "user-1", WalletAddress: "0xabc", NodeID: "42"}

	require.NoError(t, Save(path, f))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, f, loaded)
}

func TestClearNodeConfigIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, ClearNodeConfig(path))

	require.NoError(t, Save(path, &File{UserID: "u", NodeID: "1"}))
	require.NoError(t, ClearNodeConfig(path))
	require.NoError(t, ClearNodeConfig(path))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolveWithOverrideSkipsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json") // never created
	override := uint64(99)

	resolved, err := Resolve(&override, path, fakeLookup{wallet: "0xwallet"})
	require.NoError(t, err)
	require.Equal(t, "anonymous", resolved.UserID)
	require.Equal(t, "99", resolved.NodeID)
	require.Equal(t, "0xwallet", resolved.WalletAddress)
}

func TestResolveWithoutConfigFileOrOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	_, err := Resolve(nil, path, fakeLookup{})
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestResolveWithIncompleteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Save(path, &File{UserID: "", NodeID: ""}))

	_, err := Resolve(nil, path, fakeLookup{})
	require.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestResolveWithValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Save(path, &File{UserID: "user-1", NodeID: "7", Environment: "staging"}))

	resolved, err := Resolve(nil, path, fakeLookup{wallet: "0xwallet"})
	require.NoError(t, err)
	require.Equal(t, "user-1", resolved.UserID)
	require.Equal(t, "7", resolved.NodeID)
	require.Equal(t, "staging", resolved.Environment)
	require.Equal(t, "0xwallet", resolved.WalletAddress)
}
