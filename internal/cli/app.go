// Package cli wires the bucketsync commands. Every dependency hangs off
// App, so tests can run commands against an in-memory object store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/sdejongh/bucketsync/pkg/config"
	"github.com/sdejongh/bucketsync/pkg/logging"
	"github.com/sdejongh/bucketsync/pkg/output"
	"github.com/sdejongh/bucketsync/pkg/storage"
	"github.com/sdejongh/bucketsync/pkg/transfer"
)

// App holds the dependencies shared by all commands
type App struct {
	Out io.Writer
	Err io.Writer

	// LoadConfig reads the configuration file, "" meaning the default location
	LoadConfig func(path string) (*config.Config, error)

	// NewStore builds the object store once flags and config are merged
	NewStore func(ctx context.Context, remote config.RemoteConfig) (storage.ObjectStore, error)

	// Backend is the local filesystem
	Backend storage.Backend
}

// NewApp creates an App talking to S3 through the AWS SDK
func NewApp(out, errOut io.Writer) *App {
	return &App{
		Out:        out,
		Err:        errOut,
		LoadConfig: config.Load,
		NewStore:   NewS3Store,
		Backend:    storage.NewLocal(),
	}
}

// NewS3Store loads the shared AWS configuration and builds an S3 client
func NewS3Store(ctx context.Context, remote config.RemoteConfig) (storage.ObjectStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if remote.Region != "" {
		opts = append(opts, awsconfig.WithRegion(remote.Region))
	}
	if remote.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(remote.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if remote.Endpoint != "" {
			o.BaseEndpoint = aws.String(remote.Endpoint)
		}
		o.UsePathStyle = remote.ForcePathStyle
	})

	return storage.NewS3Store(client), nil
}

// ExitError ends the process with Code without printing anything more
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Run executes the command line and returns the process exit code
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.RootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	fmt.Fprintf(a.Err, "Error: %v\n", err)
	return 1
}

// RootCommand builds the command tree. Flag values live in a session
// created per tree.
func (a *App) RootCommand() *cobra.Command {
	s := &session{app: a}

	root := &cobra.Command{
		Use:   "bucketsync",
		Short: "Copy, move and synchronize files between local folders and S3",
		Long: `bucketsync transfers files between a local filesystem and S3 buckets.
It copies, moves and deletes objects, lists buckets and their versions, and
mirrors a tree onto another with sync.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	addGlobalFlags(root, &s.flags)

	root.AddCommand(s.newCopyCommand())
	root.AddCommand(s.newMoveCommand())
	root.AddCommand(s.newRemoveCommand())
	root.AddCommand(s.newSyncCommand())
	root.AddCommand(s.newCompareCommand())
	root.AddCommand(s.newListCommand())
	root.AddCommand(s.newListVersionsCommand())
	root.AddCommand(s.newBucketCommand())
	root.AddCommand(s.newConfigCommand())
	root.AddCommand(s.newVersionCommand())

	return root
}

// session is the state of one command line
type session struct {
	app   *App
	flags GlobalFlags
}

// environment is what a transfer command needs once config is merged
type environment struct {
	cfg          *config.Config
	logger       logging.Logger
	orchestrator *transfer.Orchestrator
}

func (e *environment) Close() error {
	return e.logger.Close()
}

// loadConfig reads the config file and applies the global flags over it
func (s *session) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := s.app.LoadConfig(s.flags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	s.flags.apply(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// environment builds the logger, store and orchestrator for cmd
func (s *session) environment(cmd *cobra.Command, opts ...transfer.Option) (*environment, error) {
	cfg, err := s.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return s.environmentFor(cmd, cfg, opts...)
}

// environmentFor is environment with an already merged configuration
func (s *session) environmentFor(cmd *cobra.Command, cfg *config.Config, opts ...transfer.Option) (*environment, error) {
	logger, err := s.createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := s.app.NewStore(cmd.Context(), cfg.Remote)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &environment{
		cfg:          cfg,
		logger:       logger.WithFields(logging.Fields{"command": cmd.Name()}),
		orchestrator: transfer.New(store, s.app.Backend, opts...),
	}, nil
}

// createLogger picks a file logger, a console logger for --verbose, or none
func (s *session) createLogger(cfg *config.Config) (logging.Logger, error) {
	format := logging.Format(cfg.Logging.Format)
	level := logging.ParseLevel(cfg.Logging.Level)

	if cfg.Logging.Enabled && cfg.Logging.File != "" {
		return logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      level,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		})
	}

	if s.flags.Verbose {
		return logging.NewConsoleLogger(s.app.Err, format, logging.DebugLevel), nil
	}

	return logging.NewNullLogger(), nil
}

// interactive reports whether spinners and progress bars should be drawn
func (s *session) interactive(cfg *config.Config, w io.Writer) bool {
	if cfg.Output.Quiet || !cfg.Output.Progress {
		return false
	}
	return output.IsTerminal(w)
}
