package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"tools.zach/dev/shotd/internal/paths"
)

// commandContext carries the persistent flags shared by every subcommand.
type commandContext struct {
	dataDir  string
	watchDir string
}

func (c *commandContext) dataPaths() paths.DataDir {
	return paths.DataDir{Root: c.dataDir}
}

// defaultDataDir returns ~/.shotd, or ./.shotd when the home directory
// cannot be determined.
func defaultDataDir() string {
	dd, err := paths.Default()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return dd.Root
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           paths.BinaryName,
		Short:         "Watch a directory and act on new screenshots",
		Version:       resolveVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), ctx.dataPaths(), ctx.watchDir, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.dataDir, "data-dir", defaultDataDir(), "Data directory for config, PID file and logs")
	rootCmd.Flags().StringVar(&ctx.watchDir, "dir", "", "Directory to watch (overrides watch.dir)")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newLogCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
