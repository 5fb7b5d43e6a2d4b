// Package cli implements the uvmigrate command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/uvmigrate/pkg/buildinfo"
	"github.com/matzehuels/uvmigrate/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "uvmigrate"

	// envPrefix is the prefix for configuration environment variables
	// (e.g. UVMIGRATE_MERGE_GROUPS).
	envPrefix = "UVMIGRATE"
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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "uvmigrate",
		Short:         "Migrate Python projects to the uv package manager",
		Long:          `Uvmigrate rebuilds a Python project on uv. It detects the legacy dependency format (poetry, pipenv, requirements files, setup.py, or conda), replays every declared dependency through uv so the lock file resolves from scratch, and carries project metadata, scripts, and package indexes over to the new pyproject.toml.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.detectCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a migration runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(nil, c.Logger)
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/uvmigrate/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// =============================================================================
// Arguments
// =============================================================================

// projectDir resolves the optional positional directory argument.
func projectDir(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
