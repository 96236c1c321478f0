package cli

import (
	"github.com/spf13/cobra"

	"github.com/sdejongh/bucketsync/pkg/config"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool

	// Remote
	Profile   string
	Region    string
	Endpoint  string
	PathStyle bool

	// Logging
	LogFile   string
	LogFormat string
	LogLevel  string
}

// addGlobalFlags adds global flags to the root command
func addGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.ConfigFile, "config", "", "config file (default is $XDG_CONFIG_HOME/bucketsync/config.yaml)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "log every operation to stderr")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-error output")

	pf.StringVar(&flags.Profile, "profile", "", "AWS shared config profile")
	pf.StringVar(&flags.Region, "region", "", "AWS region")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "custom S3 endpoint URL")
	pf.BoolVar(&flags.PathStyle, "path-style", false, "use path-style bucket addressing")

	pf.StringVar(&flags.LogFile, "log-file", "", "write logs to file (enables logging)")
	pf.StringVar(&flags.LogFormat, "log-format", "text", "log format: text, json")
	pf.StringVar(&flags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// apply overrides config values with the flags set on the command line
func (f *GlobalFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		return cmd.Flags().Changed(name)
	}

	if changed("profile") {
		cfg.Remote.Profile = f.Profile
	}
	if changed("region") {
		cfg.Remote.Region = f.Region
	}
	if changed("endpoint") {
		cfg.Remote.Endpoint = f.Endpoint
	}
	if changed("path-style") {
		cfg.Remote.ForcePathStyle = f.PathStyle
	}

	if f.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = f.LogFile
	}
	if changed("log-format") {
		cfg.Logging.Format = f.LogFormat
	}
	if changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}

	// Disable progress in quiet mode
	if f.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}
}
