package jobs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdinPath reads rows from standard input.
const StdinPath = "-"

// Row is one non-blank input line split on tabs.
type Row struct {
	// Line is the 1-based line where the row starts.
	Line   int
	Fields []string
}

// Field returns the trimmed field i, or "" when the row is shorter.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// ParseRows reads tab-separated rows as pasted from a spreadsheet. Blank lines and
// lines starting with '#' are ignored, and double-quoted cells may span lines.
func ParseRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing input: %w", err)
		}

		line, _ := reader.FieldPos(0)
		fields := make([]string, len(record))
		blank := true
		for i, f := range record {
			fields[i] = strings.TrimSpace(f)
			if fields[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Line: line, Fields: fields})
	}
	return rows, nil
}

// ReadRowsFile parses the rows of path, or of stdin when path is StdinPath.
func ReadRowsFile(path string) ([]Row, error) {
	if path == StdinPath {
		return ParseRows(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return ParseRows(f)
}
