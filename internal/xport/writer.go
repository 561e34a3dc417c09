package xport

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

const recordLen = 80

// WriterOptions configures a Writer.
type WriterOptions struct {
	Version Version
}

// DefaultWriterOptions returns WriterOptions for a V5 file.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{Version: V5}
}

// WithVersion returns a copy of o with Version set.
func (o WriterOptions) WithVersion(v Version) WriterOptions {
	o.Version = v
	return o
}

// Writer serializes a Dataset into the SAS XPORT binary container.
type Writer struct {
	w    io.Writer
	opts WriterOptions
}

// NewWriter builds a Writer with default (V5) options.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, opts: DefaultWriterOptions()}
}

// WithOptions builds a Writer with explicit options.
func WithOptions(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: w, opts: opts}
}

// WriteDataset validates ds against the writer's version constraints and
// writes the complete XPORT container. On a V5 constraint violation it
// returns a *ConstraintError and writes nothing.
func (w *Writer) WriteDataset(ds *Dataset) error {
	if w.opts.Version == V5 {
		if err := checkV5Constraints(ds); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	writeRecord(&buf, markerRecord("LIBRARY", 0))
	writeRecord(&buf, realHeaderRecord())
	writeRecord(&buf, markerRecord("MEMBER", 0))
	writeRecord(&buf, markerRecord("DSCRPTR", 0))
	writeRecord(&buf, datasetNameRecord(ds, w.opts.Version))

	longEntries := longNameLabelEntries(ds.Columns, w.opts.Version)

	writeRecord(&buf, markerRecord("NAMESTR", len(ds.Columns)))
	namestrBlock, offsets := encodeNamestrs(ds.Columns, longEntries)
	buf.Write(namestrBlock)
	padToBoundary(&buf)

	if w.opts.Version == V8 && len(longEntries) > 0 {
		writeRecord(&buf, markerRecord("LABELV8", len(longEntries)))
		buf.Write(encodeLabelV8(longEntries))
		padToBoundary(&buf)
	}

	writeRecord(&buf, markerRecord("OBS", 0))
	encodeObservations(&buf, ds, offsets)
	padToBoundary(&buf)

	_, err := w.w.Write(buf.Bytes())
	return err
}

func checkV5Constraints(ds *Dataset) error {
	if len(ds.Name) > 8 {
		return &ConstraintError{Kind: "dataset name", Value: ds.Name, Limit: 8}
	}
	for _, c := range ds.Columns {
		if len(c.Name) > 8 {
			return &ConstraintError{Kind: "variable name", Value: c.Name, Limit: 8}
		}
		if len(c.Label) > 40 {
			return &ConstraintError{Kind: "label", Value: c.Label, Limit: 40}
		}
	}
	return nil
}

func writeRecord(buf *bytes.Buffer, rec [recordLen]byte) {
	buf.Write(rec[:])
}

func padRecord(s string) [recordLen]byte {
	var r [recordLen]byte
	for i := range r {
		r[i] = ' '
	}
	b := []byte(s)
	if len(b) > recordLen {
		b = b[:recordLen]
	}
	copy(r[:], b)
	return r
}

// markerRecord builds a "HEADER RECORD*******<name>HEADER RECORD!!!!!!!<count>"
// sentinel record. count is used for the NAMESTR variable count and the
// LABELV8 entry count; zero otherwise.
func markerRecord(name string, count int) [recordLen]byte {
	return padRecord(fmt.Sprintf("HEADER RECORD*******%-8sHEADER RECORD!!!!!!!%016d", name, count))
}

func parseMarker(rec []byte) (name string, count int, ok bool) {
	s := string(rec)
	const prefix = "HEADER RECORD*******"
	const mid = "HEADER RECORD!!!!!!!"
	if len(s) < len(prefix)+8+len(mid)+16 {
		return "", 0, false
	}
	if s[:len(prefix)] != prefix {
		return "", 0, false
	}
	rest := s[len(prefix):]
	nameField := rest[:8]
	rest = rest[8:]
	if rest[:len(mid)] != mid {
		return "", 0, false
	}
	rest = rest[len(mid):]
	countField := rest[:16]
	fmt.Sscanf(countField, "%d", &count)
	return trimTrailingSpace(nameField), count, true
}

func trimTrailingSpace(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return s[:i]
}

func realHeaderRecord() [recordLen]byte {
	// SAS version / OS / timestamp descriptor; never consumed by this
	// module's own reader, carried for shape only.
	now := referenceTimestamp()
	return padRecord(fmt.Sprintf("SAS     SAS     SASLIB  %-8s%-16s%-16s", "9.4", now, now))
}

// referenceTimestamp renders a fixed creation timestamp. Kernel callers
// never depend on this value; it exists only to occupy the descriptor
// record's date fields, so a fixed epoch keeps output deterministic for
// round-trip tests (time.Now() is intentionally not used here).
func referenceTimestamp() string {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Format("02JAN06:15:04:05")
}

func datasetNameRecord(ds *Dataset, v Version) [recordLen]byte {
	name := ds.Name
	if v == V5 && len(name) > 8 {
		name = name[:8]
	}
	return padRecord(fmt.Sprintf("SAS     %-8s SASDATA %-8s%-16s%-16s", name, "9.4", referenceTimestamp(), referenceTimestamp()))
}

func padToBoundary(buf *bytes.Buffer) {
	rem := buf.Len() % recordLen
	if rem == 0 {
		return
	}
	buf.Write(make([]byte, recordLen-rem))
}
