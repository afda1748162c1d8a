package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "Add, rename or delete columns",
}

var columnAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a column at the end of the board",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			col, err := a.sync.AddColumn(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created column %q [%s]\n", col.Title, col.ID)
			return nil
		})
	},
}

var columnRenameCmd = &cobra.Command{
	Use:   "rename <column-id> <title>",
	Short: "Rename a column",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			col, err := a.sync.RenameColumn(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed column [%s] to %q\n", col.ID, col.Title)
			return nil
		})
	},
}

var columnRmCmd = &cobra.Command{
	Use:     "rm <column-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a column and every task in it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.sync.DeleteColumn(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted column [%s]\n", args[0])
			return nil
		})
	},
}

func init() {
	columnCmd.AddCommand(columnAddCmd, columnRenameCmd, columnRmCmd)
	rootCmd.AddCommand(columnCmd)
}
