package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyFile     = errors.New("empty file")
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformed     = errors.New("malformed value")
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 4096

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseError locates a malformed cell.
type ParseError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: column %q: %v (value %q)", e.File, e.Line, e.Column, e.Err, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// record is one CSV row addressed by header name.
type record struct {
	file   string
	line   int
	index  map[string]int
	fields []string
}

func (r record) String(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) Float(column string) (float64, error) {
	raw := r.String(column)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, r.malformed(column, raw)
	}
	return v, nil
}

// OptionalFloat treats an absent column or empty cell as zero.
func (r record) OptionalFloat(column string) (float64, error) {
	if r.String(column) == "" {
		return 0, nil
	}
	return r.Float(column)
}

func (r record) Time(column string) (time.Time, error) {
	raw := r.String(column)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, r.malformed(column, raw)
}

func (r record) malformed(column, value string) error {
	return &ParseError{File: r.file, Line: r.line, Column: column, Value: value, Err: ErrMalformed}
}

// readTable streams a CSV file with a header row, calling fn for every data
// row. Every name in required must appear in the header.
func readTable(ctx context.Context, path string, required []string, fn func(record) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return scanTable(ctx, path, file, required, fn)
}

func scanTable(ctx context.Context, name string, src io.Reader, required []string, fn func(record) error) (int, error) {
	reader := csv.NewReader(src)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: read header: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("%s: %w: %s", name, ErrMissingColumn, col)
		}
	}

	count := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("%s: %w", name, err)
		}

		if count%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}

		line, _ := reader.FieldPos(0)
		if err := fn(record{file: name, line: line, index: index, fields: fields}); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}
