package xport

import "bytes"

// encodeObservations appends the raw observation bytes for every row in ds,
// row-major, each cell occupying exactly its NAMESTR-declared width at the
// offset recorded in offsets.
func encodeObservations(buf *bytes.Buffer, ds *Dataset, offsets []int) {
	rowWidth := 0
	for i, c := range ds.Columns {
		w := c.Length
		if c.Numeric {
			w = 8
		}
		if end := offsets[i] + w; end > rowWidth {
			rowWidth = end
		}
	}

	for _, row := range ds.Rows {
		rec := make([]byte, rowWidth)
		for i := range rec {
			rec[i] = ' '
		}
		for i, v := range row {
			w := ds.Columns[i].Length
			if ds.Columns[i].Numeric {
				w = 8
			}
			off := offsets[i]
			if v.IsNumeric {
				var b [8]byte
				if v.Missing != nil {
					b = ibmMissing(*v.Missing)
				} else {
					b = ieeeToIBM(v.Num)
				}
				copy(rec[off:off+8], b[:])
			} else {
				copyPadded(rec[off:off+w], v.Str)
			}
		}
		buf.Write(rec)
	}
}

// decodeObservations parses the raw observation bytes back into rows.
func decodeObservations(data []byte, columns []Column, offsets []int) [][]Value {
	rowWidth := 0
	for i, c := range columns {
		w := c.Length
		if c.Numeric {
			w = 8
		}
		if end := offsets[i] + w; end > rowWidth {
			rowWidth = end
		}
	}
	if rowWidth == 0 {
		return nil
	}

	var rows [][]Value
	for start := 0; start+rowWidth <= len(data); start += rowWidth {
		rec := data[start : start+rowWidth]
		row := make([]Value, len(columns))
		for i, c := range columns {
			w := c.Length
			if c.Numeric {
				w = 8
			}
			off := offsets[i]
			cell := rec[off : off+w]
			if c.Numeric {
				var b [8]byte
				copy(b[:], cell)
				if m, ok := decodeMissing(b); ok {
					row[i] = NumericMissingWith(m)
				} else {
					row[i] = NumericValue(ibmToIEEE(b))
				}
			} else {
				row[i] = CharacterValue(trimTrailingSpace(string(cell)))
			}
		}
		rows = append(rows, row)
	}
	// The writer pads the last 80-byte record with zero bytes; trailing
	// all-zero rows inside that final record are padding and are dropped (an
	// all-numeric row of zeros in that position is dropped with them).
	for len(rows) > 0 {
		start := (len(rows) - 1) * rowWidth
		if len(data)-start >= recordLen || bytes.Count(data[start:start+rowWidth], []byte{0}) != rowWidth {
			break
		}
		rows = rows[:len(rows)-1]
	}
	return rows
}
