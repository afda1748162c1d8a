package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <src-column> <src-index> <dst-column> <dst-index>",
	Short: "Move a task and wait for the remote to catch up",
	Example: `  kanban-sync move todo 0 done 0
  kanban-sync move todo 2 todo 0`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcIndex, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid source index %q: %w", args[1], err)
		}
		dstIndex, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid destination index %q: %w", args[3], err)
		}

		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			b, err := a.sync.Reorder(args[0], srcIndex, args[2], dstIndex)
			if err != nil {
				return err
			}
			if err := a.sync.Flush(ctx); err != nil {
				return err
			}

			if failures := a.sync.Failures(); len(failures) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d task updates failed; the remote may differ from the board below\n", len(failures))
			}
			return printBoard(cmd.OutOrStdout(), b, false)
		})
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)
}
