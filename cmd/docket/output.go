package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"docket/internal/submission"
	"docket/internal/workflow"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorStatus(status submission.Status, colorize bool) string {
	label := status.Label()
	if !colorize {
		return label
	}
	switch {
	case status == submission.StatusApproved:
		return ansiGreen + label + ansiReset
	case status.IsPending():
		return ansiYellow + label + ansiReset
	case status.IsTerminal():
		return ansiRed + label + ansiReset
	}
	return label
}

// printResult reports a mutating operation. A refusal is printed, not
// returned as an error, but still exits non-zero.
func (c *commandContext) printResult(cmd *cobra.Command, res workflow.Result) error {
	if c.flags.json {
		if err := writeJSON(cmd, res); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		switch {
		case !res.OK:
			fmt.Fprintf(out, "Refused: %s\n", res.Reason)
		case res.Reason != "":
			fmt.Fprintf(out, "Done with warning: %s\n", res.Reason)
		default:
			fmt.Fprintln(out, "Done")
		}
		if res.SubmissionID != "" {
			fmt.Fprintf(out, "  Submission: %s\n", res.SubmissionID)
		}
		if res.Status != "" {
			fmt.Fprintf(out, "  Status:     %s\n", colorStatus(res.Status, colorize))
		}
		if p := res.Placement; p != nil {
			fmt.Fprintf(out, "  Placement:  %s\n", p.Outcome)
			if p.FinalPath != "" {
				fmt.Fprintf(out, "  Placed at:  %s\n", p.FinalPath)
			}
			if p.StagedPath != "" {
				fmt.Fprintf(out, "  Staged at:  %s\n", p.StagedPath)
			}
		}
		if res.TicketID != "" {
			fmt.Fprintf(out, "  Ticket:     %s\n", res.TicketID)
		}
	}
	if !res.OK {
		return errRefused
	}
	return nil
}

func formatSize(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
