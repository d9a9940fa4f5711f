// Package markdown repairs common defects in model-generated markdown so
// renderers display tables instead of pipe-delimited text.
package markdown

import "strings"

// RepairTables normalizes pipe tables in text: every table row gains leading
// and trailing pipes, and a header separator row is synthesized when the
// model forgot to emit one. Non-table text passes through untouched.
func RepairTables(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+4)

	for i := 0; i < len(lines); {
		if !isTableRow(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		start := i
		for i < len(lines) && isTableRow(lines[i]) {
			i++
		}
		block := lines[start:i]

		// A single pipe-bearing line is not a table.
		if len(block) < 2 {
			out = append(out, block...)
			continue
		}

		rows := make([]string, len(block))
		for j, row := range block {
			rows[j] = normalizeRow(row)
		}
		if !isSeparatorRow(rows[1]) {
			rows = append(rows[:1], append([]string{separatorFor(rows[0])}, rows[1:]...)...)
		}
		out = append(out, rows...)
	}

	return strings.Join(out, "\n")
}

// isTableRow reports whether a line looks like part of a pipe table: it
// contains a pipe and something besides pipes and whitespace.
func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.Contains(trimmed, "|") && strings.Trim(trimmed, "| \t") != ""
}

// normalizeRow adds missing leading and trailing pipes.
func normalizeRow(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		trimmed = "|" + trimmed
	}
	if !strings.HasSuffix(trimmed, "|") {
		trimmed += "|"
	}
	return trimmed
}

// isSeparatorRow reports whether a normalized row is a header separator like
// |---|:---:|.
func isSeparatorRow(row string) bool {
	cells := splitCells(row)
	if len(cells) == 0 {
		return false
	}
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return false
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(cell, ":"), ":")
		if trimmed == "" || strings.Trim(trimmed, "-") != "" {
			return false
		}
	}
	return true
}

// separatorFor builds a |---|...|---| row matching the header's column count.
func separatorFor(header string) string {
	cells := splitCells(header)
	var b strings.Builder
	b.WriteString("|")
	for range cells {
		b.WriteString("---|")
	}
	return b.String()
}

// splitCells returns the interior cells of a normalized row.
func splitCells(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")
	if row == "" {
		return nil
	}
	return strings.Split(row, "|")
}
