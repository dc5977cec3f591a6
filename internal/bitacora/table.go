package bitacora

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTable prints a tabular summary of the ledger's entries: method, API,
// status, success and user message. Diagnostic only.
func WriteTable(w io.Writer, l *Ledger) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tAPI\tSTATUS\tSUCCESS\tMESSAGE")
	for _, e := range l.Data {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", e.Method, e.API, e.Status, e.Success, e.MessageUSR)
	}
	return tw.Flush()
}
