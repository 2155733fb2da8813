package display

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RowStyle marks a row's place in the day.
type RowStyle int

const (
	RowPlain   RowStyle = iota
	RowPassed           // dimmed
	RowCurrent          // green
	RowNext             // accent
)

// Table renders an aligned text table with optional color support.
type Table struct {
	headers []string
	rows    [][]string
	styles  map[int]RowStyle
}

// NewTable creates a new table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{headers: headers, styles: make(map[int]RowStyle)}
}

// AddRow appends a row of values. The number of values should match the number of headers.
func (t *Table) AddRow(values []string) {
	t.rows = append(t.rows, values)
}

// SetRowStyle styles the row at idx (0-based).
func (t *Table) SetRowStyle(idx int, s RowStyle) {
	t.styles[idx] = s
}

// Render produces the formatted table string with leading indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sepParts := make([]string, len(widths))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sepParts, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths)
		switch t.styles[i] {
		case RowPassed:
			line = Dim(line)
		case RowCurrent:
			line = Green(line)
		case RowNext:
			line = Accent(line)
		}
		sb.WriteString("  " + line + "\n")
	}

	return sb.String()
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// KeyValue renders label/value pairs with the labels padded to one width.
func KeyValue(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if n := utf8.RuneCountInString(p[0]); n > width {
			width = n
		}
	}
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "  %s  %s\n", Gray(p[0]+strings.Repeat(" ", width-utf8.RuneCountInString(p[0]))), p[1])
	}
	return sb.String()
}
