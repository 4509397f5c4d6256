// Command indexerd is the thin supervisor that wires configuration,
// logging, the four stores, and the pipeline together and runs them until
// signaled to stop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgercore/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "indexerd"}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the indexer until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}
			return runSupervisor(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "named environment config overlay to merge")
	return cmd
}

func configCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "named environment config overlay to merge")
	return cmd
}
