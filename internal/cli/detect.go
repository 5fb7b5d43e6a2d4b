package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/pipeline"
)

// detectCommand creates the detect command for read-only format inspection.
func (c *CLI) detectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [dir]",
		Short: "Detect a project's dependency format without migrating",
		Long: `Detect a project's dependency format without migrating.

The command probes the directory for supported manifests, parses the
first match, and reports what a migration would pick up. No files are
written. Formats are probed in precedence order: conda, poetry, pipenv,
setup.py, requirements files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDetect(cmd.Context(), projectDir(args))
		},
	}
}

// runDetect probes and parses the project, then prints what it found.
func (c *CLI) runDetect(ctx context.Context, dir string) error {
	opts := pipeline.Options{Dir: dir, Logger: c.Logger}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	parser, err := deps.Detect(opts.Dir, pipeline.DefaultParsers(c.Logger)...)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	ex, err := parser.Parse(ctx, opts.Dir)
	if err != nil {
		return err
	}
	main, dev, group := ex.Counts()
	prog.done(fmt.Sprintf("Parsed %d dependencies", main+dev+group))

	printKeyValue("Format", parser.Name())
	if ex.Meta != nil && ex.Meta.Name != "" {
		printKeyValue("Project", ex.Meta.Name)
	}
	if ex.PythonVersion != "" {
		printKeyValue("Python", ex.PythonVersion)
	}
	printStats(main, dev, group)
	return nil
}
