// Package flags defines the urfave/cli flag set shared by the prover-node
// binary's commands.
package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	commonCategory  = "COMMON"
	proverCategory  = "PROVER"
	networkCategory = "NETWORK"
)

// Common flags, read by every command.
var (
	Environment = &cli.StringFlag{
		Name:     "environment",
		Usage:    "Orchestrator environment: local, staging, beta, or production",
		Value:    "production",
		Category: commonCategory,
		EnvVars:  []string{"NEXUS_ENVIRONMENT"},
	}
	ConfigDir = &cli.StringFlag{
		Name:     "config-dir",
		Usage:    "Directory holding config.json (the signing key is always ~/.nexus/user.key)",
		Category: commonCategory,
		EnvVars:  []string{"NEXUS_CONFIG_DIR"},
	}
	LogLevel = &cli.StringFlag{
		Name:     "log-level",
		Usage:    "Operator log level threshold: error, warn, info, or debug",
		Value:    "info",
		Category: commonCategory,
		EnvVars:  []string{"NEXUS_LOG_LEVEL"},
	}
	JSONLogs = &cli.BoolFlag{
		Name:     "json-logs",
		Usage:    "Emit structured logs as JSON instead of the human-readable format",
		Category: commonCategory,
		EnvVars:  []string{"NEXUS_JSON_LOGS"},
	}
)

// Prover (start command) flags.
var (
	Headless = &cli.BoolFlag{
		Name:     "headless",
		Usage:    "Run without the interactive TUI, emitting events as log lines",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_HEADLESS"},
	}
	NumProvers = &cli.IntFlag{
		Name:     "num-provers",
		Usage:    "Number of prover threads assumed by the FLOPS estimate sent with each submission; does not change how many proofs run at once",
		Value:    1,
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_NUM_PROVERS"},
	}
	MaxTasks = &cli.IntFlag{
		Name:     "max-tasks",
		Usage:    "Exit cleanly after this many completed proof tasks; 0 means unlimited",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_MAX_TASKS"},
	}
	NodeIDOverride = &cli.Uint64Flag{
		Name:     "node-id",
		Usage:    "Use this node id instead of the one stored in config.json",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_NODE_ID"},
	}
	MaxDifficulty = &cli.StringFlag{
		Name:     "max-difficulty",
		Usage:    "Pin the requested task difficulty (small, medium, large, extra_large) instead of the adaptive policy",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_MAX_DIFFICULTY"},
	}
	SubprocessTimeout = &cli.DurationFlag{
		Name:     "subprocess-timeout",
		Usage:    "Kill a proof subprocess that runs longer than this; 0 means no timeout",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_SUBPROCESS_TIMEOUT"},
	}
	GracePeriod = &cli.DurationFlag{
		Name:     "grace-period",
		Usage:    "How long a proof in flight is given to finish after a shutdown signal before being killed",
		Value:    30 * time.Second,
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_GRACE_PERIOD"},
	}
	HTTPAddr = &cli.StringFlag{
		Name:     "http-addr",
		Usage:    "Address the local health/metrics/events HTTP server listens on; empty disables it",
		Value:    ":9090",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_HTTP_ADDR"},
	}
	VersionCheckInterval = &cli.DurationFlag{
		Name:     "version-check-interval",
		Usage:    "Interval between polls of the remote version/region requirements document",
		Value:    15 * time.Minute,
		Category: networkCategory,
		EnvVars:  []string{"NEXUS_VERSION_CHECK_INTERVAL"},
	}
	VersionCheckURL = &cli.StringFlag{
		Name:     "version-check-url",
		Usage:    "URL of the remote version/region requirements document",
		Category: networkCategory,
		EnvVars:  []string{"NEXUS_VERSION_CHECK_URL"},
	}
	Anonymous = &cli.BoolFlag{
		Name:     "anonymous",
		Usage:    "Run the prover against a canned local task on a loop, bypassing the Fetcher/Submitter and the orchestrator entirely; for smoke-testing a node's prover toolchain",
		Category: proverCategory,
		EnvVars:  []string{"NEXUS_ANONYMOUS"},
	}
)

// CommonFlags apply to every command.
var CommonFlags = []cli.Flag{
	Environment,
	ConfigDir,
	LogLevel,
	JSONLogs,
}

// MergeFlags concatenates flag groups in order, matching the pattern the
// rest of this codebase's sibling commands use to compose per-command flag
// sets from shared building blocks.
func MergeFlags(groups ...[]cli.Flag) []cli.Flag {
	var merged []cli.Flag
	for _, group := range groups {
		merged = append(merged, group...)
	}
	return merged
}
