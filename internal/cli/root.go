// Package cli implements the askify-push command line.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type rootOptions struct {
	envFiles []string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "askify-push",
		Short:         "Web Push delivery for Askify",
		Version:       version + " (" + buildDate + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newKeygenCommand(),
		newSendCommand(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
