package ui

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/forest-guardian/truecolor-cli/internal/history"
)

// ShowHistory prints past submissions, oldest first.
func (m *Menu) ShowHistory(_ context.Context) error {
	if m.ledger == nil {
		m.console.PrintWarning("No history file configured.")
		return nil
	}
	return PrintHistory(m.console, m.ledger)
}

func PrintHistory(c *Console, ledger *history.Ledger) error {
	records, err := ledger.All()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		c.PrintWarning("No submissions recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(c.Writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tMODE\tSTART\tEND\tFORMAT\tSTATUS\tRESPONSE\tMESSAGE")
	for _, r := range records {
		response := r.ResponsePath
		if response == "" {
			response = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode, r.StartDate, r.EndDate, r.FileFormat, r.Status, response, r.Message)
	}
	return w.Flush()
}
