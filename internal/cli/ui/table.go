// Package ui holds the terminal rendering helpers shared by the commands:
// aligned tables for conflict reports and key-value summaries for cache
// state.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns with a header row. Rows marked breaking
// render red so incompatible fields stand out in diff output.
type Table struct {
	writer   io.Writer
	headers  []string
	rows     [][]string
	breaking []bool
	noColor  bool
}

// NewTable creates a table with the given header row
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{writer: w, headers: headers}
}

// DisableColor turns off ANSI colors, for tests and non-tty output
func (t *Table) DisableColor() {
	t.noColor = true
}

// AddRow appends a plain row
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
	t.breaking = append(t.breaking, false)
}

// AddBreakingRow appends a row rendered in red
func (t *Table) AddBreakingRow(cells ...string) {
	t.rows = append(t.rows, cells)
	t.breaking = append(t.breaking, true)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	red := color.New(color.FgRed)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
		red.DisableColor()
	}

	for i, header := range t.headers {
		bold.Fprint(t.writer, padRight(header, widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for r, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				continue
			}
			padded := padRight(cell, widths[i])
			if t.breaking[r] {
				red.Fprint(t.writer, padded)
			} else {
				fmt.Fprint(t.writer, padded)
			}
			if i < len(row)-1 {
				fmt.Fprint(t.writer, "  ")
			}
		}
		fmt.Fprintln(t.writer)
	}
}

// KeyValueTable renders aligned key: value pairs
type KeyValueTable struct {
	writer  io.Writer
	rows    []kvRow
	noColor bool
}

type kvRow struct {
	key   string
	value string
}

// NewKeyValueTable creates an empty key-value table
func NewKeyValueTable(w io.Writer) *KeyValueTable {
	return &KeyValueTable{writer: w}
}

// DisableColor turns off ANSI colors
func (t *KeyValueTable) DisableColor() {
	t.noColor = true
}

// Add appends a key-value pair
func (t *KeyValueTable) Add(key, value string) {
	t.rows = append(t.rows, kvRow{key: key, value: value})
}

// Render writes the pairs with keys aligned
func (t *KeyValueTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	maxKeyWidth := 0
	for _, row := range t.rows {
		if len(row.key) > maxKeyWidth {
			maxKeyWidth = len(row.key)
		}
	}

	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for _, row := range t.rows {
		cyan.Fprint(t.writer, padRight(row.key+":", maxKeyWidth+1))
		fmt.Fprintf(t.writer, " %s\n", row.value)
	}
}

// Header writes a bold section title
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	if noColor {
		bold.DisableColor()
	}
	bold.Fprintln(w, title)
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
