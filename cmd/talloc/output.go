package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/SpanishPear/talloc-cli/client"
	"github.com/SpanishPear/talloc-cli/pkg/fanout"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

func borderlessTabularTable(writer io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(writer)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printSummary(w io.Writer, results []fanout.Result[*client.RawResponse]) {
	table := borderlessTabularTable(w)
	table.SetHeader([]string{"zid", "status", "bytes", "duration"})
	for _, r := range results {
		if r.Err != nil {
			table.Append([]string{r.Key, "error", "-", "-"})
			continue
		}
		table.Append([]string{
			r.Key,
			strconv.Itoa(r.Value.StatusCode),
			strconv.Itoa(len(r.Value.Body)),
			r.Value.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

func printFailures(w io.Writer, results []fanout.Result[*client.RawResponse]) {
	red := color.New(color.FgRed)
	for _, r := range results {
		if r.Err != nil {
			red.Fprintf(w, "Failed to fetch %s: %v\n", r.Key, r.Err)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startProgress shows a spinner with a fetched counter when w is a terminal.
// The returned callback is safe to pass to fanout.Options.Progress and stop
// must be called once the fan-out is over.
func startProgress(w io.Writer, total int) (progress func(done, total int), stop func()) {
	if total < 2 || !isTerminal(w) {
		return nil, func() {}
	}

	// See charsets at
	// https://godoc.org/github.com/briandowns/spinner#pkg-variables
	s := spinner.New(spinner.CharSets[24], 100*time.Millisecond)
	s.Writer = w
	s.Suffix = fmt.Sprintf("  0/%d applications fetched", total)
	s.Start()

	return func(done, total int) {
			s.Lock()
			s.Suffix = fmt.Sprintf("  %d/%d applications fetched", done, total)
			s.Unlock()
		}, func() {
			s.Stop()
		}
}
