package cmd

import (
	"github.com/spf13/cobra"
)

var failuresLimit int

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List task updates that failed to reconcile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		failures, err := store.Failures(cmd.Context(), failuresLimit)
		if err != nil {
			return err
		}
		return printFailures(cmd.OutOrStdout(), failures)
	},
}

func init() {
	rootCmd.AddCommand(failuresCmd)
	failuresCmd.Flags().IntVarP(&failuresLimit, "limit", "n", 20, "Maximum number of failures to list, newest first")
}
