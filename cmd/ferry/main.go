package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"text/tabwriter"

	"github.com/aknsh/ferry"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// SyncCommander defines the interface for sync operations.
type SyncCommander interface {
	Run(ctx context.Context, rootDir string, opts ferry.SyncOptions) (ferry.SyncResult, error)
}

// CheckCommander defines the interface for check operations.
type CheckCommander interface {
	Run(ctx context.Context) (ferry.CheckResult, error)
}

// InitCommander defines the interface for init operations.
type InitCommander interface {
	Run(dir string, opts ferry.InitOptions) (ferry.InitResult, error)
}

type options struct {
	syncCommander      SyncCommander                                      // nil = use default
	checkCommander     func(dir string, cfg *ferry.Config) CheckCommander // nil = use default
	initCommander      InitCommander                                      // nil = use default
	commandIDGenerator func() string                                      // nil = use ferry.GenerateCommandID
}

// Option configures newRootCmd.
type Option func(*options)

// WithSyncCommander sets the SyncCommander instance for testing.
func WithSyncCommander(cmd SyncCommander) Option {
	return func(o *options) {
		o.syncCommander = cmd
	}
}

// WithCheckCommander sets the CheckCommander factory for testing.
func WithCheckCommander(factory func(dir string, cfg *ferry.Config) CheckCommander) Option {
	return func(o *options) {
		o.checkCommander = factory
	}
}

// WithInitCommander sets the InitCommander instance for testing.
func WithInitCommander(cmd InitCommander) Option {
	return func(o *options) {
		o.initCommander = cmd
	}
}

// WithCommandIDGenerator sets the command ID generator for testing.
func WithCommandIDGenerator(gen func() string) Option {
	return func(o *options) {
		o.commandIDGenerator = gen
	}
}

func resolveDirectory(dirFlag, baseCwd string) (string, error) {
	if dirFlag == "" {
		return baseCwd, nil
	}

	var resolved string
	if !filepath.IsAbs(dirFlag) {
		resolved = filepath.Join(baseCwd, dirFlag)
	} else {
		resolved = dirFlag
	}

	resolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot change to '%s': %w", dirFlag, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("cannot change to '%s': not a directory", dirFlag)
	}

	return resolved, nil
}

// createLogger creates a logger based on verbosity level.
// Returns a nop logger for verbosity < 1, or a CLI handler logger otherwise.
func createLogger(w io.Writer, verbosity int, idGen func() string) *slog.Logger {
	if verbosity < 1 {
		return ferry.NewNopLogger()
	}
	handler := ferry.NewCLIHandler(w, ferry.VerbosityToLevel(verbosity))
	handlerWithID := handler.WithAttrs([]slog.Attr{
		ferry.LogAttrKeyCmdID.Attr(idGen()),
	})
	return slog.New(handlerWithID)
}

func newRootCmd(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		cfg       *ferry.Config
		cwd       string
		dirFlag   string
		colorFlag string
	)

	idGenerator := func() func() string {
		if o.commandIDGenerator != nil {
			return o.commandIDGenerator
		}
		return ferry.GenerateCommandID
	}

	rootCmd := &cobra.Command{
		Use:           "ferry",
		Short:         "Carry uncommitted work to a remote checkout",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			originalCwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			cwd, err = resolveDirectory(dirFlag, originalCwd)
			if err != nil {
				return err
			}

			// Set color mode based on flag
			ferry.SetColorMode(ferry.ColorMode(colorFlag))

			result, err := ferry.LoadConfig(cwd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			for _, w := range result.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			cfg = result.Config
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	syncCmd := &cobra.Command{
		Use:   "sync [<destination>]",
		Short: "Replicate the local working tree onto a remote checkout",
		Long: `Replicate the local uncommitted state onto a destination checkout.

Snapshots every dirty module (including nested submodules) into a
synthetic commit, pushes those commits to the destination's
repositories, and runs a short procedure there that makes the remote
working trees byte-identical to the local ones.

The destination is "host:path" for syncing over ssh, or a plain path
for a local checkout. It can be omitted when a default destination is
configured in .ferry/settings.toml.

Examples:
  # Sync to a configured default destination
  ferry sync

  # Sync to an explicit destination
  ferry sync devbox:/home/me/src/project

  # Show the commits and remote procedure without touching the remote
  ferry sync --dry-run

  # Restrict the snapshot to matching paths
  ferry sync -F "src/**" -F "*.toml"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			verbose := verbosity >= 1
			quiet, _ := cmd.Flags().GetBool("quiet")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			filePatterns, _ := cmd.Flags().GetStringArray("file")
			extraScript, _ := cmd.Flags().GetStringArray("script")

			// Resolve destination: positional arg > config
			destination := cfg.Destination
			if len(args) == 1 {
				destination = args[0]
			}

			// Resolve keep-ref: --keep-ref flag > config
			keepRef := cfg.ShouldKeepRef()
			if cmd.Flags().Changed("keep-ref") {
				keepRef, _ = cmd.Flags().GetBool("keep-ref")
			}

			if len(filePatterns) == 0 {
				filePatterns = cfg.Files
			}
			extraScript = append(append([]string{}, cfg.ExtraScript...), extraScript...)

			log := createLogger(cmd.ErrOrStderr(), verbosity, idGenerator())

			var syncCmdRunner SyncCommander
			if o.syncCommander != nil {
				syncCmdRunner = o.syncCommander
			} else {
				syncCmdRunner = ferry.NewDefaultSyncCommand(log)
			}

			result, err := syncCmdRunner.Run(cmd.Context(), cwd, ferry.SyncOptions{
				Destination:  destination,
				DryRun:       dryRun,
				KeepRef:      keepRef,
				FilePatterns: filePatterns,
				ExtraScript:  extraScript,
			})
			if err != nil {
				return err
			}

			formatted := result.Format(ferry.SyncFormatOptions{
				Verbose: verbose,
				Quiet:   quiet,
			})
			if formatted.Stderr != "" {
				fmt.Fprint(cmd.ErrOrStderr(), formatted.Stderr)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted.Stdout)
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate ferry configuration and repository state",
		Long: `Validate the ferry configuration and the repository environment.

Checks that the configured destination and file patterns are
well-formed, that the directory is inside a git working tree, and
that the module graph (including nested submodules) is discoverable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			verbose := verbosity >= 1
			quiet, _ := cmd.Flags().GetBool("quiet")

			log := createLogger(cmd.ErrOrStderr(), verbosity, idGenerator())

			var checkCmdRunner CheckCommander
			if o.checkCommander != nil {
				checkCmdRunner = o.checkCommander(cwd, cfg)
			} else {
				checkCmdRunner = ferry.NewDefaultCheckCommand(cwd, cfg, log)
			}
			result, err := checkCmdRunner.Run(cmd.Context())
			if err != nil {
				return err
			}

			formatted := result.Format(ferry.CheckFormatOptions{
				Verbose: verbose,
				Quiet:   quiet,
			})
			fmt.Fprint(cmd.OutOrStdout(), formatted.Stdout)

			if count := result.ErrorCount(); count > 0 {
				return fmt.Errorf("%d check(s) failed", count)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize ferry configuration",
		Long:  `Create a .ferry/settings.toml configuration file in the current directory.`,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Override parent's PersistentPreRunE to skip config loading
			// since init creates the config file
			originalCwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			cwd, err = resolveDirectory(dirFlag, originalCwd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			force, _ := cmd.Flags().GetBool("force")

			log := createLogger(cmd.ErrOrStderr(), verbosity, idGenerator())

			var initCommand InitCommander
			if o.initCommander != nil {
				initCommand = o.initCommander
			} else {
				initCommand = ferry.NewDefaultInitCommand(log)
			}
			result, err := initCommand.Run(cwd, ferry.InitOptions{Force: force})
			if err != nil {
				return err
			}

			formatted := result.Format(ferry.InitFormatOptions{})
			fmt.Fprint(cmd.OutOrStdout(), formatted.Stdout)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "version:\t%s\n", version)
			fmt.Fprintf(w, "commit:\t%s\n", commit)
			fmt.Fprintf(w, "date:\t%s\n", date)
			w.Flush()
		},
	}

	// Register flags
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "directory", "C", "", "Run as if ferry was started in <path>")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Enable verbose output (-v for verbose, -vv for debug)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Color output: auto, always, never")

	syncCmd.Flags().BoolP("dry-run", "n", false, "Show commits and the remote procedure without pushing")
	syncCmd.Flags().Bool("keep-ref", false, "Leave the synced commit checked out on the destination")
	syncCmd.Flags().BoolP("quiet", "q", false, "Output only the root commit ID")
	syncCmd.Flags().StringArrayP("file", "F", nil, "Restrict the snapshot to matching paths (repeatable)")
	syncCmd.Flags().StringArrayP("script", "e", nil, "Shell fragment appended to the remote procedure (repeatable)")
	rootCmd.AddCommand(syncCmd)

	checkCmd.Flags().BoolP("quiet", "q", false, "Output only errors")
	rootCmd.AddCommand(checkCmd)

	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing configuration file")
	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var rootCmd = newRootCmd()

func main() {
	os.Exit(run())
}

func run() int {
	// CPU profiling support via environment variable
	if profFile := os.Getenv("FERRY_CPUPROFILE"); profFile != "" {
		f, err := os.Create(profFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ferry: failed to create CPU profile: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "ferry: failed to start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "ferry:", err)
		return 1
	}
	return 0
}
