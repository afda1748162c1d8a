package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/chxlky/kanban-sync/database"
	"github.com/spf13/cobra"
)

var (
	boardCached bool
	boardJSON   bool
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the board",
	Long: `Prints the board as the remote API returns it. With --cached the last
board saved to the local store is printed instead and the remote is not contacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if boardCached {
			return printCachedBoard(cmd)
		}
		return withBoard(cmd.Context(), func(ctx context.Context, a *app) error {
			return printBoard(cmd.OutOrStdout(), a.sync.Board(), boardJSON)
		})
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().BoolVar(&boardCached, "cached", false, "Print the last stored snapshot without contacting the remote")
	boardCmd.Flags().BoolVar(&boardJSON, "json", false, "Print JSON")
}

func printCachedBoard(cmd *cobra.Command) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := store.LoadSnapshot(cmd.Context(), cfg.Board.Key)
	if errors.Is(err, database.ErrNoSnapshot) {
		return fmt.Errorf("no cached board for %q; run without --cached first", cfg.Board.Key)
	}
	if err != nil {
		return err
	}
	return printBoard(cmd.OutOrStdout(), b, boardJSON)
}
