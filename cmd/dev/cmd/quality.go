package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func qualityCmd(use, short, what string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run()
			if err != nil {
				return fmt.Errorf("failed to run %s: %w", what, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests (driver, transports, cli)", "tests", func() error { return test.Test() })
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linting", "linting", func() error { return test.Lint() })
}

// IntegrationTestCmd runs tests that need a gyroscope attached through one of the bridges.
func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run hardware integration testing", "integration testing", func() error { return test.Integ() })
}

// VerifyCmd runs linting and unit tests, stopping at the first failure.
func VerifyCmd() *cobra.Command {
	return qualityCmd("verify", "Run linting and unit tests", "verification", func() error {
		err := test.Lint()
		if err != nil {
			return err
		}
		return test.Test()
	})
}
