package ingest

import "strings"

// maxHeaderScanRows bounds how many leading rows DetectHeaderRow will
// consider; sponsor extracts occasionally carry a title or a blank row
// before the real header, never more than a handful.
const maxHeaderScanRows = 5

// DetectHeaderRow finds the most likely header row in a raw matrix of
// sponsor cells and returns its index plus a 0-100 confidence score. A
// sponsor table almost always has its column names on row 0, but some CRO
// exports carry a title or protocol banner above the real header, so the
// detector scores the first few rows and picks the best rather than
// assuming row 0.
func DetectHeaderRow(rows [][]string) (int, int) {
	if len(rows) == 0 {
		return 0, 0
	}

	bestRow := 0
	bestScore := 0
	maxCheck := maxHeaderScanRows
	if maxCheck > len(rows) {
		maxCheck = len(rows)
	}
	for i := 0; i < maxCheck; i++ {
		score := scoreHeaderRow(rows[i])
		if score > bestScore {
			bestScore = score
			bestRow = i
		}
	}
	return bestRow, bestScore
}

func scoreHeaderRow(row []string) int {
	if len(row) == 0 {
		return 0
	}

	nonEmpty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return 0
	}

	score := 0
	shortTokenLike := 0
	for _, cell := range row {
		if looksLikeColumnName(cell) {
			shortTokenLike++
			score += 10
		}
	}
	if shortTokenLike == len(row) {
		score += 30
	}
	return min(score, 100)
}

// looksLikeColumnName reports whether a cell reads like a sponsor column
// name rather than a data value: short, not leading with a digit, no
// sentence punctuation.
func looksLikeColumnName(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" || len(cell) > 40 {
		return false
	}
	if cell[0] >= '0' && cell[0] <= '9' {
		return false
	}
	if strings.Contains(cell, ". ") {
		return false
	}
	return len(strings.Fields(cell)) <= 4
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
