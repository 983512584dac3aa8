// Package identity loads and persists the node's Ed25519 signing key and
// exposes the read-only NodeIdentity shared across every pipeline component.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// seedFileName is the file holding the 32-byte Ed25519 seed, stored next to
// config.json under ~/.nexus/.
const seedFileName = "user.key"

// NodeIdentity is process-lifetime and shared read-only across every
// component once loaded at startup; it is never mutated.
type NodeIdentity struct {
	NodeID        uint64
	SigningKey    ed25519.PrivateKey
	VerifyingKey  ed25519.PublicKey
	WalletAddress string
}

// SeedPath returns ~/.nexus/user.key.
func SeedPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".nexus", seedFileName), nil
}

// LoadOrCreateSigningKey reads the 32-byte seed at path, generating and
// persisting a fresh one on first run. The file is created owner-read/write
// only; an existing file with looser permissions is tightened on load.
func LoadOrCreateSigningKey(path string) (ed25519.PrivateKey, error) {
	seed, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(seed) != ed25519.SeedSize {
			return nil, errors.Errorf("signing key at %s is %d bytes, want %d", path, len(seed), ed25519.SeedSize)
		}
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, errors.Wrap(err, "restrict signing key permissions")
		}
		return ed25519.NewKeyFromSeed(seed), nil
	case os.IsNotExist(err):
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, errors.Wrap(err, "generate signing key seed")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errors.Wrap(err, "create identity directory")
		}
		if err := os.WriteFile(path, seed, 0o600); err != nil {
			return nil, errors.Wrap(err, "persist signing key")
		}
		return ed25519.NewKeyFromSeed(seed), nil
	default:
		return nil, errors.Wrap(err, "read signing key")
	}
}

// New constructs a NodeIdentity from a resolved node id, wallet address, and
// a signing key loaded via LoadOrCreateSigningKey.
func New(nodeID uint64, walletAddress string, signingKey ed25519.PrivateKey) *NodeIdentity {
	return &NodeIdentity{
		NodeID:        nodeID,
		SigningKey:    signingKey,
		VerifyingKey:  signingKey.Public().(ed25519.PublicKey),
		WalletAddress: walletAddress,
	}
}

// NodeIDString returns the decimal string form used in wire messages and
// orchestrator query params.
func (n *NodeIdentity) NodeIDString() string {
	return strconv.FormatUint(n.NodeID, 10)
}

// Sign produces the Ed25519 signature over msg, used for the submit-proof
// request's authentication string.
func (n *NodeIdentity) Sign(msg []byte) []byte {
	return ed25519.Sign(n.SigningKey, msg)
}
