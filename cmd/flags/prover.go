package flags

import "github.com/urfave/cli/v2"

// StartFlags is the full flag set for the "start" command.
var StartFlags = MergeFlags(CommonFlags, []cli.Flag{
	Headless,
	NumProvers,
	MaxTasks,
	NodeIDOverride,
	MaxDifficulty,
	SubprocessTimeout,
	GracePeriod,
	HTTPAddr,
	VersionCheckInterval,
	VersionCheckURL,
	Anonymous,
})

// RegisterUserFlags is the flag set for the "register-user" command.
var RegisterUserFlags = MergeFlags(CommonFlags, []cli.Flag{
	WalletAddress,
})

// RegisterNodeFlags is the flag set for the "register-node" command.
var RegisterNodeFlags = CommonFlags

// WalletAddress identifies the account a newly registered user is tied to.
var WalletAddress = &cli.StringFlag{
	Name:     "wallet-address",
	Usage:    "Wallet address to register this account under",
	Required: true,
	Category: commonCategory,
	EnvVars:  []string{"NEXUS_WALLET_ADDRESS"},
}
