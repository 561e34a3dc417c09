package ingest

import "testing"

func TestFromRawRowsDetectsHeaderAndBuildsFrame(t *testing.T) {
	raw := [][]string{
		{"SUBJECT", "AGE", "SEX"},
		{"001", "45", "M"},
		{"002", "", "F"},
		{"003", "61", "m"},
	}

	table, err := FromRawRows(raw, false)
	if err != nil {
		t.Fatalf("FromRawRows: %v", err)
	}
	if table.HeaderAt != 0 {
		t.Fatalf("expected header at row 0, got %d", table.HeaderAt)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 data rows, got %d", len(table.Rows))
	}

	f, hints := table.ToFrame("DM")
	if f.Rows() != 3 {
		t.Fatalf("expected frame with 3 rows, got %d", f.Rows())
	}
	if f.Cell("SUBJECT", 0) != "001" {
		t.Fatalf("unexpected cell: %q", f.Cell("SUBJECT", 0))
	}

	found := false
	for _, h := range hints {
		if h.Name == "AGE" {
			found = true
			if h.NullRatio <= 0 {
				t.Fatalf("expected AGE to have a non-zero null ratio, got %v", h.NullRatio)
			}
			if !h.IsNumeric {
				t.Fatalf("expected AGE to be numeric")
			}
		}
	}
	if !found {
		t.Fatal("expected AGE hint to be present")
	}
}

func TestFromRawRowsSkipsBannerRow(t *testing.T) {
	raw := [][]string{
		{"Protocol ABC-123 Adverse Events Listing"},
		{"SUBJECT", "AETERM", "AESTDTC"},
		{"001", "Headache", "2020-01-01"},
	}

	table, err := FromRawRows(raw, false)
	if err != nil {
		t.Fatalf("FromRawRows: %v", err)
	}
	if table.HeaderAt != 1 {
		t.Fatalf("expected detector to skip the banner row, got header at %d", table.HeaderAt)
	}
}

func TestNormalizeHeadersDedupesBlankAndDuplicate(t *testing.T) {
	out := normalizeHeaders([]string{"SUBJECT", "", "SUBJECT"})
	want := []string{"SUBJECT", "COLUMN_2", "SUBJECT_2"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("normalizeHeaders[%d] = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestFromRawRowsWithLabelRow(t *testing.T) {
	raw := [][]string{
		{"SUBJECT", "AETERM"},
		{"Subject Identifier", "Adverse Event Term"},
		{"001", "Headache"},
	}
	table, err := FromRawRows(raw, true)
	if err != nil {
		t.Fatalf("FromRawRows: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 data row after consuming label row, got %d", len(table.Rows))
	}
	if table.Labels["AETERM"] != "Adverse Event Term" {
		t.Fatalf("unexpected label: %q", table.Labels["AETERM"])
	}
}
