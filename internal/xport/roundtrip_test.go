package xport

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func roundtrip(t *testing.T, ds *Dataset, version Version) *Dataset {
	t.Helper()
	var buf bytes.Buffer
	w := WithOptions(&buf, DefaultWriterOptions().WithVersion(version))
	if err := w.WriteDataset(ds); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}
	if buf.Len()%recordLen != 0 {
		t.Fatalf("output length %d is not a multiple of %d", buf.Len(), recordLen)
	}
	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := r.ReadDataset()
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	return got
}

func TestRoundtrip_V5Basic(t *testing.T) {
	ds := NewDataset("DM", []Column{
		CharacterColumn("USUBJID", 20).WithLabel("Unique Subject ID"),
		NumericColumn("AGE").WithLabel("Age in Years"),
	})
	ds.AddRow([]Value{CharacterValue("STUDY-001"), NumericValue(35)})
	ds.AddRow([]Value{CharacterValue("STUDY-002"), NumericValue(42)})

	got := roundtrip(t, ds, V5)

	if got.Name != "DM" {
		t.Errorf("Name = %q, want DM", got.Name)
	}
	if len(got.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(got.Columns))
	}
	if got.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.NumRows())
	}
	if got.Columns[0].Name != "USUBJID" || got.Columns[0].Label != "Unique Subject ID" {
		t.Errorf("column 0 = %+v", got.Columns[0])
	}
	if got.Columns[1].Name != "AGE" || got.Columns[1].Label != "Age in Years" {
		t.Errorf("column 1 = %+v", got.Columns[1])
	}
	if s, _ := got.Rows[0][0].AsString(); s != "STUDY-001" {
		t.Errorf("row 0 cell 0 = %q, want STUDY-001", s)
	}
	if n := got.Rows[0][1].Num; n != 35 {
		t.Errorf("row 0 cell 1 = %v, want 35", n)
	}
}

func TestRoundtrip_V5MissingValues(t *testing.T) {
	ds := NewDataset("AE", []Column{
		CharacterColumn("AETERM", 20),
		NumericColumn("AESTDY"),
		NumericColumn("AESEQ"),
	})
	ds.AddRow([]Value{CharacterValue("Headache"), NumericValue(1), NumericValue(1)})
	ds.AddRow([]Value{CharacterValue("Nausea"), NumericMissing(), NumericValue(2)})
	ds.AddRow([]Value{CharacterValue("Fatigue"), NumericValue(7), NumericMissingWith(SpecialMissing('A'))})

	got := roundtrip(t, ds, V5)

	if got.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", got.NumRows())
	}
	if got.Rows[0][1].IsMissing() {
		t.Errorf("row 0 AESTDY should not be missing")
	}
	if !got.Rows[1][1].IsMissing() {
		t.Errorf("row 1 AESTDY should be standard missing")
	}
	if !got.Rows[2][2].IsMissing() {
		t.Errorf("row 2 AESEQ should be special missing")
	}
}

func TestRoundtrip_NumericPrecision(t *testing.T) {
	ds := NewDataset("TEST", []Column{NumericColumn("VALUE")})
	values := []float64{0, 1, -1, 123.456, 1e10, 1e-10}
	for _, v := range values {
		ds.AddRow([]Value{NumericValue(v)})
	}

	got := roundtrip(t, ds, V5)

	for i, want := range values {
		gotVal := got.Rows[i][0].Num
		if math.Abs(gotVal-want) > math.Max(1e-6*math.Abs(want), 1e-10) {
			t.Errorf("row %d: got %v, want %v", i, gotVal, want)
		}
	}
}

func TestRoundtrip_V5RejectsLongVariableName(t *testing.T) {
	ds := NewDataset("TEST", []Column{NumericColumn("VERYLONGNAME")})
	var buf bytes.Buffer
	w := WithOptions(&buf, DefaultWriterOptions().WithVersion(V5))
	err := w.WriteDataset(ds)
	if err == nil {
		t.Fatal("expected ConstraintError for a 12-char V5 variable name")
	}
	if _, ok := err.(*ConstraintError); !ok {
		t.Fatalf("expected *ConstraintError, got %T", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no bytes written on constraint failure, got %d", buf.Len())
	}
}

func TestRoundtrip_V5RejectsLongDatasetName(t *testing.T) {
	ds := NewDataset("VERYLONGNAME", []Column{NumericColumn("VAR1")})
	var buf bytes.Buffer
	w := WithOptions(&buf, DefaultWriterOptions().WithVersion(V5))
	if err := w.WriteDataset(ds); err == nil {
		t.Fatal("expected ConstraintError for a 12-char V5 dataset name")
	}
}

func TestRoundtrip_V8LongVariableNameAndLabel(t *testing.T) {
	longName := "VERYLONGVARIABLENAME"
	longLabel := strings.Repeat("A", 100)

	ds := NewDataset("TEST", []Column{
		NumericColumn(longName).WithLabel(longLabel),
	})
	ds.AddRow([]Value{NumericValue(123.456)})

	got := roundtrip(t, ds, V8)

	if got.Columns[0].Name != longName {
		t.Errorf("Name = %q, want %q", got.Columns[0].Name, longName)
	}
	if got.Columns[0].Label != longLabel {
		t.Errorf("Label length = %d, want %d", len(got.Columns[0].Label), len(longLabel))
	}
}

func TestRoundtrip_V8AcceptsWhatV5Rejects(t *testing.T) {
	ds := NewDataset("TEST", []Column{NumericColumn("VERYLONGVARIABLENAME12345")})
	ds.AddRow([]Value{NumericValue(1)})

	var buf bytes.Buffer
	w := WithOptions(&buf, DefaultWriterOptions().WithVersion(V8))
	if err := w.WriteDataset(ds); err != nil {
		t.Fatalf("V8 should accept a 25-char variable name, got: %v", err)
	}
}

func TestRoundtrip_V8EmptyDataset(t *testing.T) {
	ds := NewDataset("EMPTY", []Column{
		CharacterColumn("USUBJID", 20),
		NumericColumn("AGE"),
	})
	got := roundtrip(t, ds, V8)
	if got.Name != "EMPTY" || len(got.Columns) != 2 || got.NumRows() != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestRoundtrip_V8MultipleLongNames(t *testing.T) {
	ds := NewDataset("TEST", []Column{
		CharacterColumn("FIRSTLONGVARIABLENAME", 20).WithLabel("First variable"),
		NumericColumn("SECONDLONGVARIABLENAME").WithLabel("Second variable"),
		CharacterColumn("SHORTVAR", 10).WithLabel("Short name variable"),
	})
	ds.AddRow([]Value{CharacterValue("VALUE1"), NumericValue(42), CharacterValue("SHORT")})

	got := roundtrip(t, ds, V8)

	if got.Columns[0].Name != "FIRSTLONGVARIABLENAME" {
		t.Errorf("column 0 name = %q", got.Columns[0].Name)
	}
	if got.Columns[1].Name != "SECONDLONGVARIABLENAME" {
		t.Errorf("column 1 name = %q", got.Columns[1].Name)
	}
	if got.Columns[2].Name != "SHORTVAR" {
		t.Errorf("column 2 name = %q", got.Columns[2].Name)
	}
}

func TestRoundtrip_FormatFieldsPreserved(t *testing.T) {
	ds := NewDataset("TEST", []Column{
		NumericColumn("STARTDT").WithLabel("Start Date").WithFormat("DATE9", 9, 0),
	})
	ds.AddRow([]Value{NumericValue(21916)})

	got := roundtrip(t, ds, V8)

	c := got.Columns[0]
	if c.FormatName != "DATE9" || c.FormatLength != 9 || c.FormatDecimals != 0 {
		t.Errorf("format = %+v, want DATE9/9/0", c)
	}
}

func TestWriteDataset_V8EmitsLabelV8ForLongLabel(t *testing.T) {
	longLabel := "This is a very long label exceeding forty chars for testing"
	ds := NewDataset("TEST", []Column{NumericColumn("VAR1").WithLabel(longLabel)})
	ds.AddRow([]Value{NumericValue(1)})

	var buf bytes.Buffer
	w := WithOptions(&buf, DefaultWriterOptions().WithVersion(V8))
	if err := w.WriteDataset(ds); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}

	data := buf.Bytes()
	found := false
	for i := 0; i+recordLen <= len(data); i += recordLen {
		name, _, ok := parseMarker(data[i : i+recordLen])
		if ok && name == "LABELV8" {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected a LABELV8 header record for a label exceeding 40 characters")
	}
}
