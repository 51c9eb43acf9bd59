// Package cli defines the learncard command line: the server, the word book
// importer and the terminal study client.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/entrypoint"
)

// NewRootCommand builds the command tree. Without a subcommand the server
// is started.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "learncard",
		Short:         "Vocabulary flashcards with progress that follows you between devices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(version)
		},
	}

	rootCmd.AddCommand(newServeCmd(version))
	rootCmd.AddCommand(newImportBookCmd())
	rootCmd.AddCommand(newStudyCmd())

	return rootCmd
}

func newServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(version)
		},
	}
}

func runServe(version string) error {
	return entrypoint.Run(config.NewConfig(), version)
}
