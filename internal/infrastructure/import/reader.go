package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Reader parses a headered CSV stream into named-column rows. It strips
// a UTF-8 BOM when present and rejects files that are not valid UTF-8.
type Reader struct {
	delimiter rune
	trimSpace bool
	headers   []string
	headerMap map[string]int
	line      int
	rowsRead  int
	csv       *csv.Reader
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ReaderOption {
	return func(r *Reader) {
		r.delimiter = d
	}
}

// WithoutTrim disables trimming of surrounding whitespace from fields
func WithoutTrim() ReaderOption {
	return func(r *Reader) {
		r.trimSpace = false
	}
}

// NewReader creates a reader and consumes the header row.
func NewReader(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		delimiter: ',',
		trimSpace: true,
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}

	buf := bufio.NewReader(src)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	head, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	if err := checkUTF8(buf); err != nil {
		return nil, err
	}

	r.csv = csv.NewReader(buf)
	r.csv.Comma = r.delimiter
	r.csv.LazyQuotes = true
	r.csv.TrimLeadingSpace = r.trimSpace
	r.csv.FieldsPerRecord = -1

	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromBytes creates a reader over an in-memory CSV payload.
func FromBytes(data []byte, opts ...ReaderOption) (*Reader, error) {
	return NewReader(bytes.NewReader(data), opts...)
}

func checkUTF8(buf *bufio.Reader) error {
	const checkSize = 4096
	content, err := buf.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

func (r *Reader) readHeader() error {
	record, err := r.csv.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	r.headers = make([]string, len(record))
	for i, h := range record {
		if r.trimSpace {
			h = strings.TrimSpace(h)
		}
		r.headers[i] = h
		r.headerMap[h] = i
	}
	if len(r.headers) == 0 {
		return ErrMissingHeader
	}

	r.line = 1 // header occupies line 1
	return nil
}

// Headers returns the parsed header names in file order.
func (r *Reader) Headers() []string {
	return r.headers
}

// HasHeader reports whether the file declares the named column.
func (r *Reader) HasHeader(name string) bool {
	_, ok := r.headerMap[name]
	return ok
}

// MissingHeaders returns the subset of required column names the file lacks.
func (r *Reader) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !r.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is a parsed data row keyed by header name.
type Row struct {
	Line   int
	Fields map[string]string
}

// Get returns the value of the named column, empty when absent.
func (row *Row) Get(header string) string {
	return row.Fields[header]
}

// IsEmpty reports whether every field in the row is blank.
func (row *Row) IsEmpty() bool {
	for _, v := range row.Fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Next reads the next data row. It returns io.EOF at end of input.
func (r *Reader) Next() (*Row, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		r.line++
		return nil, fmt.Errorf("error reading row %d: %w", r.line, err)
	}

	r.line++
	r.rowsRead++

	row := &Row{
		Line:   r.line,
		Fields: make(map[string]string, len(r.headers)),
	}
	for i, header := range r.headers {
		var value string
		if i < len(record) {
			value = record[i]
			if r.trimSpace {
				value = strings.TrimSpace(value)
			}
		}
		row.Fields[header] = value
	}
	return row, nil
}

// ReadAll reads all remaining non-empty rows.
func (r *Reader) ReadAll() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RowsRead returns the number of data rows consumed so far.
func (r *Reader) RowsRead() int {
	return r.rowsRead
}

// Line returns the 1-indexed file line of the most recent read attempt.
func (r *Reader) Line() int {
	return r.line
}
