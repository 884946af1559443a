package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stillcut/internal/plan"
)

// tableSpec describes a rounded table. Columns whose zero-based index is in
// right are right aligned; a non-empty footer is rendered below the rows.
type tableSpec struct {
	headers []string
	right   []int
	footer  []string
}

func (s tableSpec) render(rows [][]string) string {
	if len(s.headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(s.row(s.headers))
	for _, row := range rows {
		tw.AppendRow(s.row(row))
	}
	if len(s.footer) > 0 {
		tw.AppendFooter(s.row(s.footer))
	}

	configs := make([]table.ColumnConfig, len(s.headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft, AlignFooter: text.AlignLeft}
	}
	for _, col := range s.right {
		if col >= 0 && col < len(configs) {
			configs[col].Align = text.AlignRight
			configs[col].AlignFooter = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render() + "\n"
}

// row pads or truncates cells to the header width.
func (s tableSpec) row(cells []string) table.Row {
	out := make(table.Row, len(s.headers))
	for i := range out {
		if i < len(cells) {
			out[i] = cells[i]
		} else {
			out[i] = ""
		}
	}
	return out
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label string
	color text.Color
}{
	statusInfo:  {"INFO", text.FgBlue},
	statusOK:    {"OK", text.FgGreen},
	statusWarn:  {"WARN", text.FgYellow},
	statusError: {"FAIL", text.FgRed},
}

const statusLabelWidth = 20

// statusReport prints the sectioned status lines used by check and counts
// how many lines were failures.
type statusReport struct {
	out      io.Writer
	colorize bool
	sections int
	failed   int
}

func newStatusReport(out io.Writer) *statusReport {
	return &statusReport{out: out, colorize: shouldColorize(out)}
}

func (r *statusReport) section(title string) {
	if r.sections > 0 {
		fmt.Fprintln(r.out)
	}
	r.sections++
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(heading))
	if r.colorize {
		heading = text.FgBlue.Sprint(heading)
		rule = text.FgBlue.Sprint(rule)
	}
	fmt.Fprintln(r.out, heading)
	fmt.Fprintln(r.out, rule)
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	status := "[" + style.label + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if r.colorize {
		line = style.color.Sprint(line)
	}
	fmt.Fprintln(r.out, line)
	if kind == statusError {
		r.failed++
	}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// planMode parses a configured mode, falling back to the raw value for display.
func planMode(value string) plan.Mode {
	mode, err := plan.ParseMode(value)
	if err != nil {
		return plan.Mode(value)
	}
	return mode
}
