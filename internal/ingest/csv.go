package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// utf8BOM is the 3-byte UTF-8 byte-order mark some sponsor exports prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSVFile reads a sponsor CSV from disk into a raw row matrix. Real
// trial data arrives from a mix of CROs and legacy EDC exports, so the
// reader strips a UTF-8 BOM when present and falls back to decoding as
// Latin-1 (Windows-1252) when the raw bytes are not valid UTF-8, the two
// encodings real CRO deliveries actually use.
func ReadCSVFile(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return ReadCSVBytes(raw)
}

// ReadCSVBytes parses raw CSV bytes, decoding non-UTF-8 input as Latin-1.
func ReadCSVBytes(raw []byte) ([][]string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !utf8.Valid(raw) {
		decoded, err := decodeLatin1(raw)
		if err != nil {
			return nil, fmt.Errorf("ingest: decode non-UTF-8 CSV: %w", err)
		}
		raw = decoded
	}

	r := csv.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	r.FieldsPerRecord = -1 // sponsor exports are not always rectangular
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: parse CSV: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func decodeLatin1(raw []byte) ([]byte, error) {
	decoder := charmap.Windows1252.NewDecoder()
	out, _, err := transform.Bytes(decoder, raw)
	return out, err
}
