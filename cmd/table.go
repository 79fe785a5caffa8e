package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// padToWidth pads or truncates text to exactly the specified display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Wide runes may leave the result one column short
		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
		return runewidth.FillRight(result, width)
	}

	return runewidth.FillRight(text, width)
}

// writeTable writes rows under headers with columns aligned by display
// width. With maxWidth > 0 the last column is truncated to fit.
func writeTable(w io.Writer, headers []string, rows [][]string, maxWidth int) error {
	// Rows are single lines
	flat := make([][]string, len(rows))
	for i, row := range rows {
		flat[i] = make([]string, len(row))
		for j, cell := range row {
			flat[i][j] = strings.Join(strings.Fields(cell), " ")
		}
	}
	rows = flat

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	if maxWidth > 0 && len(widths) > 0 {
		used := 0
		for _, cw := range widths[:len(widths)-1] {
			used += cw + len(columnGap)
		}
		last := len(widths) - 1
		widths[last] = max(min(widths[last], maxWidth-used), 3)
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = padToWidth(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, columnGap), " ")
	}

	if _, err := fmt.Fprintln(w, line(headers)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, line(row)); err != nil {
			return err
		}
	}
	return nil
}

// formatMillis formats a duration as seconds with millisecond precision
func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
