package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Add or delete tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <column-id> <content>",
	Short: "Append a task to a column",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			t, err := a.sync.AddTask(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created task [%s] in column [%s]\n", t.ID, args[0])
			return nil
		})
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <column-id> <task-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.sync.DeleteTask(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted task [%s]\n", args[1])
			return nil
		})
	},
}

func init() {
	taskCmd.AddCommand(taskAddCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}
