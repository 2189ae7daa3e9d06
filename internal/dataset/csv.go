package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errNoColumns = errors.New("no columns to parse from file")

// ReadCSV parses one uploaded part. The first record is the header; empty
// header names become "Unnamed: <i>" and repeated names get ".1", ".2" suffixes.
// Short records are padded with missing cells, long records are rejected.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Part: name, Err: errNoColumns}
	}
	if err != nil {
		return nil, wrapCSVError(name, err)
	}
	columns := normalizeHeader(header)

	var rows [][]string
	var origins []origin
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(columns) {
			return nil, &ParseError{
				Part: name,
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(columns), len(rec)),
			}
		}
		if len(rec) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, rec)
			rec = padded
		}
		rows = append(rows, rec)
		origins = append(origins, origin{part: name, line: line})
	}

	return newTable(columns, rows, origins), nil
}

func wrapCSVError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Part: name, Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Part: name, Err: err}
}

func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		columns[i] = name
	}
	return columns
}
