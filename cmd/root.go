// Package cmd holds the kanban-sync command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/chxlky/kanban-sync/internal/config"
	"github.com/chxlky/kanban-sync/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kanban-sync",
	Short: "Keep a local kanban board in step with the remote kanban API",
	Long: `kanban-sync loads a kanban board from the remote API, applies task moves
locally first and reconciles them with the remote in the background.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		zap.ReplaceGlobals(logging.New(cfg.Log.Level, cfg.Log.File))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute runs the command selected by os.Args.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./config.toml)")
}
