package reportdiff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/validate"
)

// RenderIssues serializes a validator issue list into a stable,
// line-per-issue text suitable for Diff. Issues are expected to already be
// in validate.Validate's stable severity/rule/variable/sample order;
// RenderIssues does not re-sort.
func RenderIssues(issues []validate.Issue) string {
	var b strings.Builder
	for _, iss := range issues {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\n", iss.Severity, iss.Rule, iss.Domain, iss.Variable, iss.Message)
	}
	return b.String()
}

// RenderFrame serializes a frame.Frame as tab-separated text, header row
// first, used to compare two runs of the executor over the same inputs.
func RenderFrame(f frame.Frame) string {
	var b strings.Builder
	b.WriteString(strings.Join(f.Columns, "\t"))
	b.WriteByte('\n')
	for row := 0; row < f.Rows(); row++ {
		cells := make([]string, len(f.Columns))
		for i, c := range f.Columns {
			cells[i] = f.CellTrimmed(c, row)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderDomainCounts summarizes a study export by domain name and row
// count, sorted by domain, for quick human-readable run-to-run comparison
// without pulling in the full row data.
func RenderDomainCounts(rowCounts map[string]int) string {
	names := make([]string, 0, len(rowCounts))
	for name := range rowCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s\t%d\n", name, rowCounts[name])
	}
	return b.String()
}
