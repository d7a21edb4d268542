package engine

import (
	"fmt"
	"strings"
)

// FormatResult renders a result as an ASCII table, or just the status
// message when there are no columns.
func FormatResult(r *Result) string {
	if r == nil {
		return ""
	}
	if len(r.Columns) == 0 {
		return r.Message
	}

	widths := make([]int, len(r.Columns))
	for i, col := range r.Columns {
		widths[i] = len(col)
	}
	for _, row := range r.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeSeparator(&b, widths)
	writeRow(&b, r.Columns, widths)
	writeSeparator(&b, widths)
	for _, row := range r.Rows {
		writeRow(&b, row, widths)
	}
	writeSeparator(&b, widths)
	b.WriteString(r.Message)
	return b.String()
}

func writeSeparator(b *strings.Builder, widths []int) {
	for _, w := range widths {
		b.WriteString("+")
		b.WriteString(strings.Repeat("-", w+2))
	}
	b.WriteString("+\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		fmt.Fprintf(b, "| %-*s ", w, cell)
	}
	b.WriteString("|\n")
}
