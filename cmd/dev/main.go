package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mklimuk/sm5714/cmd/dev/cmd"
	"github.com/mklimuk/sm5714/cmd/sm5714/console"
)

var debug bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "dev",
		Short: "build/test tool for the sm5714 project",
		Long:  "Builds the sm5714 cli for the host or a board and runs the test suites",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(console.NewLogger(debug))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(cmd.BuildCmd())
	rootCmd.AddCommand(cmd.TestCmd())
	rootCmd.AddCommand(cmd.LintCmd())
	rootCmd.AddCommand(cmd.IntegrationTestCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("unexpected error", "error", err)
		os.Exit(1)
	}
}
