package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors
var (
	destructive = lipgloss.Color("#e53935")
	success     = lipgloss.Color("#8BC34A")
	warning     = lipgloss.Color("#FFC107")
	info        = lipgloss.Color("#2196F3")
	muted       = lipgloss.Color("#6b7280")
)

// Styles groups the console styles.
type Styles struct {
	Notice  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the console styles.
func DefaultStyles() Styles {
	return Styles{
		Notice:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle().Foreground(success),
		Warning: lipgloss.NewStyle().Foreground(warning),
		Error:   lipgloss.NewStyle().Foreground(destructive).Bold(true),
		Title:   lipgloss.NewStyle().Foreground(info).Bold(true),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(muted),
	}
}

// consoleReporter writes eraser progress: notices and successes to out,
// warnings and errors to errOut.
type consoleReporter struct {
	out    io.Writer
	errOut io.Writer
	styles Styles
}

func newConsoleReporter(out, errOut io.Writer) *consoleReporter {
	return &consoleReporter{out: out, errOut: errOut, styles: DefaultStyles()}
}

func (r *consoleReporter) Notice(msg string) {
	fmt.Fprintln(r.out, r.styles.Notice.Render(msg))
}

func (r *consoleReporter) Success(msg string) {
	fmt.Fprintln(r.out, r.styles.Success.Render(msg))
}

func (r *consoleReporter) Warning(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Warning.Render(msg))
}

func (r *consoleReporter) Error(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Error.Render(msg))
}

// table renders static rows with padded columns.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(styles Styles) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	// Padding(0, 1) adds one column on each side
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(styles.Title.Render(t.title))
		sb.WriteString("\n")
	}

	sep := styles.Muted.Render("|")
	writeRow := func(cells []string, style lipgloss.Style) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
			if i < len(widths)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}

	writeRow(t.headers, styles.Header)
	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")
	for _, row := range t.rows {
		writeRow(row, styles.Cell)
	}
	return sb.String()
}
