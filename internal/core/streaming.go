package core

// streaming.go cleans uploaded files as they are read.
//
// Spreadsheet exports regularly carry a byte order mark, UTF-16 encoding
// (Excel "Unicode Text") or stray invalid bytes. NewCleanReader handles all
// three on the fly so the CSV and JSON decoders only ever see valid UTF-8.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NewCleanReader strips a leading BOM, decodes UTF-16 input announced by its
// BOM, and replaces ill-formed UTF-8 with U+FFFD.
func NewCleanReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(runes.ReplaceIllFormed()))
}

// CountingReader tracks bytes read from the underlying reader.
type CountingReader struct {
	reader io.Reader
	n      int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.n += int64(n)
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *CountingReader) BytesRead() int64 {
	return r.n
}
