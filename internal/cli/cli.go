// Package cli implements the vfdiscovery command-line interface.
//
// # Commands
//
// The main commands are:
//   - run: Discover the vf-core components of a project and report on them
//   - config: Read, update or reset the persisted configuration
//   - cache: Clear or locate the upstream artifact cache
//   - completion: Generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Log lines are
// written to stderr and appended to the file named by --log-file (-l);
// an empty value disables the file. Loggers are passed through
// context.Context.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vfdiscovery/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "vfdiscovery"

	// defaultLogFile is appended to by every command unless disabled.
	defaultLogFile = "vf-core-service-discovery.log"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	stderr  io.Writer
	stdout  io.Writer
	verbose bool
	logFile string
	closer  io.Closer

	// logOutput is the logger's normal destination; logSink is the log
	// file alone, nil when disabled.
	logOutput io.Writer
	logSink   io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		stderr:    w,
		stdout:    os.Stdout,
		logOutput: w,
	}
}

// Close releases the log file, if one was opened.
func (c *CLI) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "vfdiscovery reports on the vf-core components a project uses",
		Long:          `vfdiscovery inventories the @visual-framework components of a project, compares the installed versions with the latest vf-core release and lists the changelog, configuration and dependents of each component.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := LogInfo
			if c.verbose {
				level = LogDebug
			}
			if err := c.setupLogging(level); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.logFile, "log-file", "l", defaultLogFile, "append logs to this file (empty to disable)")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setupLogging rebuilds the logger at level, teeing into the log file.
func (c *CLI) setupLogging(level log.Level) error {
	w, f, err := openLogOutput(c.stderr, c.logFile)
	if err != nil {
		return err
	}
	if f != nil {
		c.closer = f
		c.logSink = f
	}
	c.logOutput = w
	c.Logger = newLogger(w, level)
	return nil
}
