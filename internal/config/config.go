// Package config implements the on-disk node configuration persisted at
// ~/.nexus/config.json, and the resolve flow that reconciles it with a
// --node-id override at startup.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// File is the Config as it is marshaled to and from config.json.
type File struct {
	Environment   string `json:"environment"`
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	NodeID        string `json:"node_id"`
}

// Path returns ~/.nexus/config.json.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".nexus", "config.json"), nil
}

// Load reads and parses the config file at path.
func Load(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	var f File
	if err := json.Unmarshal(buf, &f); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	return &f, nil
}

// Save writes f to path as pretty-printed JSON, creating parent directories
// as needed.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	buf, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

// ClearNodeConfig removes the config file at path. A missing file is not an
// error: logout is idempotent.
func ClearNodeConfig(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if filepath.Base(path) != "config.json" {
		return errors.New("refusing to remove a path that is not config.json")
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, "remove config file")
	}
	return nil
}

// ErrNotRegistered is returned by Resolve when no config file exists and no
// --node-id override was supplied.
var ErrNotRegistered = errors.New("configuration file not found; register first")

// ErrIncompleteConfig is returned when the config file exists but is missing
// a user id or carries an unparsable node id.
var ErrIncompleteConfig = errors.New("configuration is incomplete or invalid; register a node")

// NodeLookup resolves a wallet address for a node id, matching the
// orchestrator's GetNode operation. Satisfied by pkg/orchestrator.Client.
type NodeLookup interface {
	GetNode(nodeID string) (walletAddress string, err error)
}

// Resolved is the outcome of Resolve: everything the pipeline needs to start
// a session, regardless of whether it came from disk or from an override.
type Resolved struct {
	Environment   string
	UserID        string
	WalletAddress string
	NodeID        string
}

// Resolve implements the CLI's node-id resolution order: an explicit
// override always wins and may run without any config file on disk
// (an anonymous session); otherwise the on-disk config file is required and
// must carry both a user id and a parsable node id.
func Resolve(nodeIDOverride *uint64, path string, lookup NodeLookup) (*Resolved, error) {
	if nodeIDOverride != nil {
		nodeID := strconv.FormatUint(*nodeIDOverride, 10)
		wallet, err := lookup.GetNode(nodeID)
		if err != nil {
			return nil, errors.Wrap(err, "look up node for provided node id")
		}
		return &Resolved{
			UserID:        "anonymous",
			WalletAddress: wallet,
			NodeID:        nodeID,
		}, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNotRegistered
	}

	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	if f.UserID == "" || f.NodeID == "" {
		return nil, ErrIncompleteConfig
	}
	if _, err := strconv.ParseUint(f.NodeID, 10, 64); err != nil {
		return nil, ErrIncompleteConfig
	}

	wallet, err := lookup.GetNode(f.NodeID)
	if err != nil {
		return nil, errors.Wrap(err, "look up node from config file")
	}

	return &Resolved{
		Environment:   f.Environment,
		UserID:        f.UserID,
		WalletAddress: wallet,
		NodeID:        f.NodeID,
	}, nil
}
