// Command prover-node is the zkVM proving client: it registers a node with
// the orchestrator, then runs the fetch -> prove -> submit pipeline until
// told to stop.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/zkproof-network/prover-node/cmd/flags"
	"github.com/zkproof-network/prover-node/internal/analytics"
	"github.com/zkproof-network/prover-node/internal/config"
	"github.com/zkproof-network/prover-node/internal/environment"
	"github.com/zkproof-network/prover-node/internal/events"
	"github.com/zkproof-network/prover-node/internal/httpserver"
	"github.com/zkproof-network/prover-node/internal/identity"
	"github.com/zkproof-network/prover-node/internal/ratelimit"
	"github.com/zkproof-network/prover-node/pkg/difficulty"
	"github.com/zkproof-network/prover-node/pkg/fetcher"
	"github.com/zkproof-network/prover-node/pkg/guestprogram"
	"github.com/zkproof-network/prover-node/pkg/orchestrator"
	"github.com/zkproof-network/prover-node/pkg/pipeline"
	"github.com/zkproof-network/prover-node/pkg/prover"
	"github.com/zkproof-network/prover-node/pkg/submitter"
	"github.com/zkproof-network/prover-node/pkg/task"
	"github.com/zkproof-network/prover-node/pkg/versioncheck"
)

// version is the binary's version, reported by --version and compared by the
// version-requirements check; overridden at link time via -ldflags in a
// release build. The analytics payload carries its own app_version value.
var version = "0.1.0"

func main() {
	// Re-exec as the isolated proving subprocess before urfave/cli ever
	// parses args: this hidden entrypoint takes positional, not flag, args.
	if len(os.Args) > 1 && os.Args[1] == prover.SubcommandName {
		if err := runSubprocess(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	app := cli.NewApp()
	app.Name = "prover-node"
	app.Usage = "Zero-knowledge proof network prover client"
	app.Version = version
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:   "start",
			Usage:  "Run the fetch-prove-submit pipeline",
			Flags:  flags.StartFlags,
			Action: runStart,
		},
		{
			Name:   "register-user",
			Usage:  "Register a new user account under a wallet address",
			Flags:  flags.RegisterUserFlags,
			Action: runRegisterUser,
		},
		{
			Name:   "register-node",
			Usage:  "Register a node under the current user",
			Flags:  flags.RegisterNodeFlags,
			Action: runRegisterNode,
		},
		{
			Name:   "logout",
			Usage:  "Remove the locally stored user and node registration",
			Flags:  flags.CommonFlags,
			Action: runLogout,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLevel(c.String(flags.LogLevel.Name))}
	if c.Bool(flags.JSONLogs.Name) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	log.SetDefault(log.NewLogger(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func configDir(c *cli.Context) (string, error) {
	if dir := c.String(flags.ConfigDir.Name); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return home + "/.nexus", nil
}

func runRegisterUser(c *cli.Context) error {
	setupLogging(c)
	ctx := c.Context

	env, ok := environment.Parse(c.String(flags.Environment.Name))
	if !ok {
		return errors.Errorf("unrecognized environment %q", c.String(flags.Environment.Name))
	}
	dir, err := configDir(c)
	if err != nil {
		return err
	}

	orch := orchestrator.NewClient(env)
	userID := uuid.NewString()
	wallet := c.String(flags.WalletAddress.Name)

	if err := orch.RegisterUser(ctx, userID, wallet); err != nil {
		return errors.Wrap(err, "register user")
	}

	path := dir + "/config.json"
	if err := config.Save(path, &config.File{Environment: env.String(), UserID: userID, WalletAddress: wallet}); err != nil {
		return errors.Wrap(err, "persist registration")
	}

	log.Info("registered user", "user_id", userID, "wallet_address", wallet)
	return nil
}

func runRegisterNode(c *cli.Context) error {
	setupLogging(c)
	ctx := c.Context

	dir, err := configDir(c)
	if err != nil {
		return err
	}
	path := dir + "/config.json"
	f, err := config.Load(path)
	if err != nil {
		return errors.Wrap(err, "load user registration; run register-user first")
	}

	env, ok := environment.Parse(f.Environment)
	if !ok {
		env, _ = environment.Parse(c.String(flags.Environment.Name))
	}
	orch := orchestrator.NewClient(env)

	nodeID, err := orch.RegisterNode(ctx, f.UserID)
	if err != nil {
		return errors.Wrap(err, "register node")
	}
	f.NodeID = nodeID

	if err := config.Save(path, f); err != nil {
		return errors.Wrap(err, "persist node registration")
	}

	log.Info("registered node", "node_id", nodeID)
	return nil
}

func runLogout(c *cli.Context) error {
	setupLogging(c)
	dir, err := configDir(c)
	if err != nil {
		return err
	}
	path := dir + "/config.json"
	if err := config.ClearNodeConfig(path); err != nil {
		return errors.Wrap(err, "clear local registration")
	}
	seedPath, err := identity.SeedPath()
	if err == nil {
		_ = os.Remove(seedPath)
	}
	log.Info("logged out")
	return nil
}

func runSubprocess(args []string) error {
	if len(args) == 0 {
		return errors.New("missing program id argument")
	}
	frame, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errors.Wrap(err, "read input frame from stdin")
	}
	return prover.RunSubprocessEntrypoint(prover.FibEngine{}, args[0], frame, os.Stdout)
}

func runStart(c *cli.Context) error {
	setupLogging(c)

	if c.Bool(flags.Anonymous.Name) {
		return runAnonymous(c)
	}

	env, ok := environment.Parse(c.String(flags.Environment.Name))
	if !ok {
		return errors.Errorf("unrecognized environment %q", c.String(flags.Environment.Name))
	}

	dir, err := configDir(c)
	if err != nil {
		return err
	}
	path := dir + "/config.json"

	orch := orchestrator.NewClient(env)

	var nodeIDOverride *uint64
	if c.IsSet(flags.NodeIDOverride.Name) {
		v := c.Uint64(flags.NodeIDOverride.Name)
		nodeIDOverride = &v
	}
	resolved, err := config.Resolve(nodeIDOverride, path, orch)
	if err != nil {
		return errors.Wrap(err, "resolve node configuration")
	}

	seedPath, err := identity.SeedPath()
	if err != nil {
		return err
	}
	signingKey, err := identity.LoadOrCreateSigningKey(seedPath)
	if err != nil {
		return errors.Wrap(err, "load signing key")
	}
	nodeID, err := strconv.ParseUint(resolved.NodeID, 10, 64)
	if err != nil {
		return errors.Wrap(err, "parse resolved node id")
	}
	id := identity.New(nodeID, resolved.WalletAddress, signingKey)

	bus := events.NewBus(events.DefaultCapacity)
	busCtx, cancelBus := context.WithCancel(context.Background())
	defer cancelBus()
	go bus.Run(busCtx)

	if c.Bool(flags.Headless.Name) {
		go logEvents(bus)
	}

	numProvers := c.Int(flags.NumProvers.Name)
	if numProvers <= 0 {
		numProvers = 1
	}

	var maxDifficulty *difficulty.Difficulty
	if s := c.String(flags.MaxDifficulty.Name); s != "" {
		d, err := parseDifficulty(s)
		if err != nil {
			return err
		}
		maxDifficulty = &d
	}

	analyticsSink := analytics.NewSink(env, id.WalletAddress)

	f := fetcher.New(orch, id, bus, fetcher.Config{
		Timer:                 ratelimit.Config{},
		MaxDifficultyOverride: maxDifficulty,
	})
	s := submitter.New(orch, id, bus, analyticsSink, submitter.Config{NumProvers: numProvers})

	selfExe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "resolve self executable path")
	}

	var httpSrv *httpserver.Server
	if addr := c.String(flags.HTTPAddr.Name); addr != "" {
		httpSrv = httpserver.New(httpserver.Opts{Bus: bus})
		go func() {
			if err := httpSrv.Start(addr); err != nil {
				log.Warn("local http server stopped", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if url := c.String(flags.VersionCheckURL.Name); url != "" {
		checker := versioncheck.New(versioncheck.NewHTTPSource(url), bus, versioncheck.Config{
			CurrentVersion: version,
			Shutdown: func(reason string) {
				log.Error("version check requested shutdown", "reason", reason)
				stop()
			},
		})
		go checker.Run(ctx, c.Duration(flags.VersionCheckInterval.Name))
	}

	p := prover.New(prover.Config{
		SelfExe:           selfExe,
		SubprocessTimeout: c.Duration(flags.SubprocessTimeout.Name),
	}, prover.FibEngine{}, bus, 0)
	pl := pipeline.New(f, p, s, bus, pipeline.Config{
		MaxTasks:    c.Int(flags.MaxTasks.Name),
		GracePeriod: c.Duration(flags.GracePeriod.Name),
	})

	var pipelineErr error
	group := make(chan struct{})
	go func() {
		defer close(group)
		pipelineErr = pl.Run(ctx)
	}()

	<-group
	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpSrv.Shutdown(shutdownCtx)
		cancel()
	}

	return pipelineErr
}

// runAnonymous runs the Prover against a canned fibonacci task on a loop,
// never touching the Fetcher, Submitter, or orchestrator. It exists for
// smoke-testing a node's proving toolchain without a registered identity.
func runAnonymous(c *cli.Context) error {
	bus := events.NewBus(events.DefaultCapacity)
	busCtx, cancelBus := context.WithCancel(context.Background())
	defer cancelBus()
	go bus.Run(busCtx)

	if c.Bool(flags.Headless.Name) {
		go logEvents(bus)
	}

	selfExe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "resolve self executable path")
	}
	p := prover.New(prover.Config{
		SelfExe:           selfExe,
		SubprocessTimeout: c.Duration(flags.SubprocessTimeout.Name),
	}, prover.FibEngine{}, bus, 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	maxTasks := c.Int(flags.MaxTasks.Name)
	completed := 0
	for {
		if ctx.Err() != nil {
			log.Info("anonymous proving stopped", "completed", completed)
			return nil
		}
		if maxTasks > 0 && completed >= maxTasks {
			log.Info("anonymous proving reached max tasks", "completed", completed)
			return nil
		}

		t := &task.Task{
			TaskID:       fmt.Sprintf("anonymous-%d", completed),
			ProgramID:    guestprogram.FibInputInitial,
			PublicInputs: [][]byte{guestprogram.FibInput{N: 10, InitA: 0, InitB: 1}.Encode()},
			Type:         task.ProofHash,
			CreatedAt:    time.Now(),
		}
		if _, err := p.Prove(ctx, t); err != nil {
			if ctx.Err() != nil {
				log.Info("anonymous proving stopped", "completed", completed)
				return nil
			}
			log.Warn("anonymous proof failed", "err", err)
			continue
		}
		completed++
		log.Info("anonymous proof complete", "completed", completed)
	}
}

func parseDifficulty(s string) (difficulty.Difficulty, error) {
	switch s {
	case "small":
		return difficulty.Small, nil
	case "medium":
		return difficulty.Medium, nil
	case "large":
		return difficulty.Large, nil
	case "extra_large":
		return difficulty.ExtraLarge, nil
	default:
		return 0, errors.Errorf("unrecognized max-difficulty %q", s)
	}
}

func logEvents(bus *events.Bus) {
	sub := bus.Subscribe()
	defer sub.Close()
	for e := range sub.Events() {
		log.Info(e.Message, "worker", e.Worker.String(), "type", e.EventType)
	}
}
