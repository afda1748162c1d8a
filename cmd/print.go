package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/models"
)

func printBoard(w io.Writer, b board.Board, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	if b.Len() == 0 {
		_, err := fmt.Fprintln(w, "(no columns)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range b.Columns() {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%d tasks\n", col.Title, col.ID, len(col.Tasks))
		for pos, t := range col.Tasks {
			fmt.Fprintf(tw, "  %d. %s\t[%s]\t\n", pos, t.Content, t.ID)
		}
	}
	return tw.Flush()
}

func printFailures(w io.Writer, failures []models.ReconcileFailure) error {
	if len(failures) == 0 {
		_, err := fmt.Fprintln(w, "no reconcile failures recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRUN\tTASK\tFROM\tTO\tMESSAGE")
	for _, f := range failures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.CreatedAt.Local().Format("2006-01-02 15:04:05"), shortRun(f.RunID), f.TaskID, f.FromColumnID, f.ColumnID, f.Message)
	}
	return tw.Flush()
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
