// Package reportdiff computes unified text diffs between two serialized
// kernel outputs: validation reports from two runs over the same study, or
// two generated Define-XML documents. It exists to support the round-trip
// and idempotence guarantees of the kernel — a caller can diff
// "run once" against "run again" and expect an empty diff.
//
// The differ wraps go-difflib opcodes into unified-diff hunks; only the
// rendering helpers in report.go know anything about kernel output shapes.
package reportdiff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Line is one line of a unified diff hunk.
type Line struct {
	Type    string `json:"type"` // "add", "remove", "context"
	LineNum int    `json:"line_num"`
	Content string `json:"content"`
}

// Hunk is a contiguous block of changed (plus context) lines.
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldCount int    `json:"old_count"`
	NewStart int    `json:"new_start"`
	NewCount int    `json:"new_count"`
	Lines    []Line `json:"lines"`
}

// Result is a full unified diff between two texts.
type Result struct {
	Hunks   []Hunk `json:"hunks"`
	Added   int    `json:"added_lines"`
	Removed int    `json:"removed_lines"`
}

// Equal reports whether the two texts produced no hunks at all — the
// validator/normalization idempotence checks reduce to this.
func (r *Result) Equal() bool {
	return len(r.Hunks) == 0
}

// Diff computes the unified diff between two texts.
func Diff(oldText, newText string) *Result {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	hunks := computeHunks(oldLines, newLines)

	added := 0
	removed := 0
	for _, hunk := range hunks {
		for _, line := range hunk.Lines {
			if line.Type == "add" {
				added++
			} else if line.Type == "remove" {
				removed++
			}
		}
	}

	return &Result{
		Hunks:   hunks,
		Added:   added,
		Removed: removed,
	}
}

func computeHunks(oldLines, newLines []string) []Hunk {
	matcher := difflib.NewMatcher(oldLines, newLines)
	opcodes := matcher.GetOpCodes()

	var hunks []Hunk
	contextLines := 3

	for _, opcode := range opcodes {
		tag := string(opcode.Tag)
		oldStart := opcode.I1
		oldEnd := opcode.I2
		newStart := opcode.J1
		newEnd := opcode.J2

		if tag == "e" {
			continue
		}

		hunkStart := oldStart
		if hunkStart > contextLines {
			hunkStart -= contextLines
		}

		hunkEnd := oldEnd
		if hunkEnd+contextLines < len(oldLines) {
			hunkEnd += contextLines
		} else {
			hunkEnd = len(oldLines)
		}

		newHunkStart := newStart
		if newHunkStart > contextLines {
			newHunkStart -= contextLines
		}

		newHunkEnd := newEnd
		if newHunkEnd+contextLines < len(newLines) {
			newHunkEnd += contextLines
		} else {
			newHunkEnd = len(newLines)
		}

		hunk := Hunk{
			OldStart: hunkStart + 1,
			OldCount: hunkEnd - hunkStart,
			NewStart: newHunkStart + 1,
			NewCount: newHunkEnd - newHunkStart,
		}

		for i := hunkStart; i < oldStart && i < len(oldLines); i++ {
			hunk.Lines = append(hunk.Lines, Line{Type: "context", LineNum: i + 1, Content: oldLines[i]})
		}

		switch tag {
		case "r":
			for i := oldStart; i < oldEnd; i++ {
				hunk.Lines = append(hunk.Lines, Line{Type: "remove", LineNum: i + 1, Content: oldLines[i]})
			}
			for i := newStart; i < newEnd; i++ {
				hunk.Lines = append(hunk.Lines, Line{Type: "add", LineNum: i + 1, Content: newLines[i]})
			}
		case "d":
			for i := oldStart; i < oldEnd; i++ {
				hunk.Lines = append(hunk.Lines, Line{Type: "remove", LineNum: i + 1, Content: oldLines[i]})
			}
		case "i":
			for i := newStart; i < newEnd; i++ {
				hunk.Lines = append(hunk.Lines, Line{Type: "add", LineNum: i + 1, Content: newLines[i]})
			}
		}

		for i := oldEnd; i < hunkEnd && i < len(oldLines); i++ {
			hunk.Lines = append(hunk.Lines, Line{Type: "context", LineNum: i + 1, Content: oldLines[i]})
		}

		hunks = append(hunks, hunk)
	}

	if len(hunks) == 0 {
		return []Hunk{}
	}

	return hunks
}

// FormatUnified renders a Result as classic unified-diff text.
func FormatUnified(r *Result) string {
	var buf strings.Builder

	buf.WriteString("--- before\n")
	buf.WriteString("+++ after\n")

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", hunk.OldStart, hunk.OldCount, hunk.NewStart, hunk.NewCount)
		for _, line := range hunk.Lines {
			switch line.Type {
			case "remove":
				fmt.Fprintf(&buf, "-%s\n", line.Content)
			case "add":
				fmt.Fprintf(&buf, "+%s\n", line.Content)
			case "context":
				fmt.Fprintf(&buf, " %s\n", line.Content)
			}
		}
	}

	return buf.String()
}
