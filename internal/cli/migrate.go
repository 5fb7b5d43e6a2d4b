package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/pyproject"
)

// migrateCommand creates the migrate command, the main entry point of the tool.
func (c *CLI) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [dir]",
		Short: "Migrate a Python project to uv",
		Long: `Migrate a Python project to uv.

The command detects the project's dependency format (poetry, pipenv,
requirements files, setup.py, or conda), initializes a uv project, and
replays every declared dependency through uv so the lock file resolves
from scratch. Project metadata, tool sections, scripts, and package
indexes are carried over to the new pyproject.toml.

If anything fails, files changed by the migration are restored from
backups unless --disable-restore is set.

Defaults can be placed in $XDG_CONFIG_HOME/uvmigrate/config.toml or set
via UVMIGRATE_* environment variables (e.g. UVMIGRATE_MERGE_GROUPS=1);
explicit flags win.

Examples:
  uvmigrate migrate                         # Migrate the current directory
  uvmigrate migrate ./legacy-api --dry-run  # Report without touching files
  uvmigrate migrate --review                # Pick dependencies interactively`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return c.runMigrate(cmd.Context(), projectDir(args), v)
		},
	}

	cmd.Flags().Bool("merge-groups", false, "fold named dependency groups into dev")
	cmd.Flags().Bool("disable-restore", false, "leave files as they are when the migration fails")
	cmd.Flags().StringArray("import-index", nil, "extra package index URL to register (repeatable)")
	cmd.Flags().Bool("import-global-pip-conf", false, "register extra indexes from the global pip config")
	cmd.Flags().Bool("dry-run", false, "extract and report without touching any files")
	cmd.Flags().Bool("review", false, "interactively choose dependencies before migrating")

	return cmd
}

// runMigrate executes the full migration and reports the outcome.
func (c *CLI) runMigrate(ctx context.Context, dir string, v *viper.Viper) error {
	opts := migrateOptions(v, dir)
	opts.Logger = c.Logger
	if v.GetBool("review") {
		if !isTerminal(os.Stdin) {
			return errors.New(errors.ErrCodeInvalidInput, "interactive review requires a terminal")
		}
		opts.Review = c.reviewExtraction
	}

	if restore := installSpinnerHooks(); restore != nil {
		defer restore()
	}

	start := time.Now()
	result, err := c.newRunner().Execute(withLogger(ctx, c.Logger), opts)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, errors.ErrCodeAborted) {
			printWarning("migration aborted, no files were changed")
			return err
		}
		printError("migration failed")
		if result != nil {
			if result.RolledBack {
				printDetail("original files were restored from backups")
			}
			for _, note := range result.RestoreNotes {
				printDetail("%s", note)
			}
		}
		return err
	}

	if opts.DryRun {
		printInfo("dry run, no files were modified")
		printSummary(result, elapsed)
		return nil
	}

	printSuccess("migrated %s project to uv", StyleHighlight.Render(result.Format))
	printFile(filepath.Join(dir, pyproject.Filename))
	printNewline()
	printSummary(result, elapsed)
	printNextStep("Inspect resolved dependencies", "uv tree")
	return nil
}
