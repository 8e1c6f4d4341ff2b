// Package cli implements the funnel command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/paths"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags
	cfg   settings
	log   *logrus.Logger

	store types.Store
	redis *redis.Client
}

// NewRootCmd creates the top-level "funnel" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:   "funnel",
		Short: "A sales pipeline board with chat automations",
		Long: "Funnel tracks sales opportunities through pipeline stages, answers\n" +
			"chat messages with trigger-based automation rules and keeps a login session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log.SetOutput(cmd.ErrOrStderr())
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.funnel-db)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newBoardCmd(a),
		newMoveCmd(a),
		newLeadCmd(a),
		newStatsCmd(a),
		newAutomationCmd(a),
		newTeamCmd(a),
		newGoalsCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newRegisterCmd(a),
		newWhoamiCmd(a),
	)
	return root, a
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// run executes one invocation. The store is detached even when the
// command fails.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root, a := newRoot()
	defer a.close()

	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "funnel:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup resolves directories and loads config.yaml.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadSettings(configDir, a.flags.dataDir)
	if err != nil {
		return sysErr(err)
	}
	a.cfg = cfg

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if a.flags.verbose {
		level = logrus.DebugLevel
	}
	a.log.SetLevel(level)
	a.log.WithFields(logrus.Fields{
		"config_dir": configDir,
		"data_dir":   cfg.DataDir,
		"backend":    cfg.Backend,
	}).Debug("configuration loaded")
	return nil
}

// close detaches the store and drops the Redis connection, if opened.
func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Detach())
		a.store = nil
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	return errors.Join(errs...)
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// systemError marks failures of the environment rather than of the input.
type systemError struct{ err error }

func (e systemError) Error() string { return e.err.Error() }
func (e systemError) Unwrap() error { return e.err }

func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return systemError{err}
}

// userErrors are the sentinels caused by what the user asked for.
var userErrors = []error{
	types.ErrStageNotFound,
	types.ErrOpportunityNotFound,
	types.ErrDuplicateID,
	types.ErrStageFull,
	types.ErrInvalidID,
	types.ErrInvalidName,
	types.ErrInvalidValue,
	types.ErrInvalidPriority,
	types.ErrInvalidResponse,
	types.ErrNoTriggers,
	types.ErrRuleNotFound,
	types.ErrNoRuleTriggered,
	types.ErrPermissionDenied,
	types.ErrAccountNotFound,
	types.ErrEmailTaken,
	types.ErrInvalidCredentials,
	types.ErrNoSession,
	types.ErrSessionExpired,
	types.ErrInvalidEmail,
	types.ErrInvalidPhone,
	types.ErrMissingExternalID,
	types.ErrWeakPassword,
	types.ErrPasswordMismatch,
	types.ErrAccountInactive,
	types.ErrMissingRCA,
	types.ErrInvalidRole,
	types.ErrInvalidGoal,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrSessionStoreUnknown,
}

// classify passes user errors through and marks everything else as a
// system error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, u := range userErrors {
		if errors.Is(err, u) {
			return err
		}
	}
	return sysErr(err)
}

func exitCode(err error) int {
	var se systemError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}
