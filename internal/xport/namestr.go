package xport

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const namestrLen = 140

// longEntry is one LABELV8 trailing-record entry: the full name/label for a
// variable whose NAMESTR fields were truncated to V5 width.
type longEntry struct {
	varnum int // 1-based
	name   string
	label  string
}

// longNameLabelEntries returns the LABELV8 entries a V8 write needs. V5
// never needs any: names over 8 chars already failed checkV5Constraints.
func longNameLabelEntries(columns []Column, v Version) []longEntry {
	if v != V8 {
		return nil
	}
	var out []longEntry
	for i, c := range columns {
		if len(c.Name) > 8 || len(c.Label) > 40 {
			out = append(out, longEntry{varnum: i + 1, name: c.Name, label: c.Label})
		}
	}
	return out
}

func placeholderName(varnum int) string {
	return fmt.Sprintf("V%07d", varnum)
}

// encodeNamestrs renders the 140-byte NAMESTR block (unpadded) and returns
// the byte offset of each column within one observation row.
func encodeNamestrs(columns []Column, longEntries []longEntry) ([]byte, []int) {
	longByVarnum := make(map[int]longEntry, len(longEntries))
	for _, e := range longEntries {
		longByVarnum[e.varnum] = e
	}

	var buf bytes.Buffer
	offsets := make([]int, len(columns))
	pos := 0
	for i, c := range columns {
		offsets[i] = pos

		nname := c.Name
		nlabel := c.Label
		if _, overridden := longByVarnum[i+1]; overridden {
			if len(nname) > 8 {
				nname = placeholderName(i + 1)
			}
			if len(nlabel) > 40 {
				nlabel = nlabel[:40]
			}
		}

		ntype := int16(2)
		nlng := int16(c.Length)
		if c.Numeric {
			ntype = 1
			nlng = 8
		}

		var rec [namestrLen]byte
		binary.BigEndian.PutUint16(rec[0:2], uint16(ntype))
		binary.BigEndian.PutUint16(rec[2:4], 0) // nhfun
		binary.BigEndian.PutUint16(rec[4:6], uint16(nlng))
		binary.BigEndian.PutUint16(rec[6:8], uint16(i+1)) // nvar0
		copyPadded(rec[8:16], nname)
		copyPadded(rec[16:56], nlabel)
		copyPadded(rec[56:64], c.FormatName)
		binary.BigEndian.PutUint16(rec[64:66], uint16(c.FormatLength))
		binary.BigEndian.PutUint16(rec[66:68], uint16(c.FormatDecimals))
		binary.BigEndian.PutUint16(rec[68:70], 0) // nfj
		// rec[70:72] nfill, rec[72:80] niform, rec[80:84] nifl/nifd left zero
		binary.BigEndian.PutUint32(rec[84:88], uint32(pos)) // npos
		buf.Write(rec[:])

		pos += int(nlng)
	}
	return buf.Bytes(), offsets
}

func copyPadded(dst []byte, s string) {
	for i := range dst {
		dst[i] = ' '
	}
	b := []byte(s)
	if len(b) > len(dst) {
		b = b[:len(dst)]
	}
	copy(dst, b)
}

// decodeNamestrs is the inverse of encodeNamestrs, returning the columns
// (pre-LABELV8-override) and each column's byte offset within a row.
func decodeNamestrs(block []byte, n int) ([]Column, []int) {
	columns := make([]Column, n)
	offsets := make([]int, n)
	for i := 0; i < n; i++ {
		rec := block[i*namestrLen : (i+1)*namestrLen]
		ntype := binary.BigEndian.Uint16(rec[0:2])
		nlng := binary.BigEndian.Uint16(rec[4:6])
		name := trimTrailingSpace(string(rec[8:16]))
		label := trimTrailingSpace(string(rec[16:56]))
		format := trimTrailingSpace(string(rec[56:64]))
		flen := binary.BigEndian.Uint16(rec[64:66])
		fdec := binary.BigEndian.Uint16(rec[66:68])
		pos := binary.BigEndian.Uint32(rec[84:88])

		columns[i] = Column{
			Name: name, Label: label, Numeric: ntype == 1, Length: int(nlng),
			FormatName: format, FormatLength: int(flen), FormatDecimals: int(fdec),
		}
		offsets[i] = int(pos)
	}
	return columns, offsets
}

// encodeLabelV8 renders the LABELV8 trailing-record payload (unpadded): for
// each entry, varnum/namelen/labellen (2 bytes each) followed by the raw
// name and label bytes.
func encodeLabelV8(entries []longEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		var head [6]byte
		binary.BigEndian.PutUint16(head[0:2], uint16(e.varnum))
		binary.BigEndian.PutUint16(head[2:4], uint16(len(e.name)))
		binary.BigEndian.PutUint16(head[4:6], uint16(len(e.label)))
		buf.Write(head[:])
		buf.WriteString(e.name)
		buf.WriteString(e.label)
	}
	return buf.Bytes()
}

// decodeLabelV8 is the inverse of encodeLabelV8 for a block of known entry
// count.
func decodeLabelV8(block []byte, count int) []longEntry {
	entries := make([]longEntry, 0, count)
	pos := 0
	for i := 0; i < count; i++ {
		if pos+6 > len(block) {
			break
		}
		varnum := int(binary.BigEndian.Uint16(block[pos : pos+2]))
		namelen := int(binary.BigEndian.Uint16(block[pos+2 : pos+4]))
		labellen := int(binary.BigEndian.Uint16(block[pos+4 : pos+6]))
		pos += 6
		name := string(block[pos : pos+namelen])
		pos += namelen
		label := string(block[pos : pos+labellen])
		pos += labellen
		entries = append(entries, longEntry{varnum: varnum, name: name, label: label})
	}
	return entries
}
