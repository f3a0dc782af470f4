package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func suite(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}

// TestCmd runs the unit tests, wire replay tests included.
func TestCmd() *cobra.Command {
	return suite("test", "Run unit tests", test.Test)
}

func LintCmd() *cobra.Command {
	return suite("lint", "Run linting", test.Lint)
}

// IntegrationTestCmd needs an SM5714 attached through one of the adapters.
func IntegrationTestCmd() *cobra.Command {
	return suite("integration-test", "Run integration tests against attached hardware", test.Integ)
}
