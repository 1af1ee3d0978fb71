// Package dataset reads listing tables and turns them into typed records.
//
// Tables are read through gota dataframes with type detection switched off,
// so every cell keeps its original text. Numeric interpretation happens only
// in the parse package, once, at the load or upload boundary.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Format identifies how an uploaded or source table is encoded.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrEmptyTable is returned for a table with no header row.
var ErrEmptyTable = errors.New("table has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromFilename picks the table format from a file extension.
// Anything that is not a spreadsheet is treated as delimited text.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ReadTable reads a whole table with its first row as the header.
func ReadTable(r io.Reader, format Format) (dataframe.DataFrame, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(r)
	case FormatCSV, "":
		return readCSV(r)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported table format %q", format)
	}
}

func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		// NA detection is left to the parse package so text is kept verbatim.
		dataframe.NaNValues([]string{}),
	}
}

func readCSV(r io.Reader) (dataframe.DataFrame, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to skip byte order mark: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to read csv table: %w", err)
		}
		// Short rows are padded with missing cells. Long rows have no
		// column to land in.
		if len(records) > 0 && len(record) > len(records[0]) {
			line, _ := cr.FieldPos(0)
			return dataframe.DataFrame{}, fmt.Errorf("failed to read csv table: record on line %d: expected %d fields, saw %d",
				line, len(records[0]), len(record))
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrEmptyTable
	}

	df := loadRecords(records)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load csv table: %w", df.Err)
	}
	return df, nil
}

func readXLSX(r io.Reader) (dataframe.DataFrame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataframe.DataFrame{}, ErrEmptyTable
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return dataframe.DataFrame{}, ErrEmptyTable
	}

	// GetRows trims trailing empty cells, so rows can be shorter than the
	// header. Cells past the header have no column and are dropped.
	width := len(rows[0])
	for i, row := range rows {
		if len(row) > width {
			rows[i] = row[:width]
		}
	}

	df := loadRecords(rows)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load sheet %q: %w", sheets[0], df.Err)
	}
	return df, nil
}

// loadRecords builds a dataframe from a header row and data rows no wider
// than it. Short rows are padded with empty cells, which parse as missing.
func loadRecords(records [][]string) dataframe.DataFrame {
	width := len(records[0])
	table := make([][]string, 0, len(records))
	table = append(table, uniqueHeader(records[0]))
	for _, row := range records[1:] {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		table = append(table, row)
	}
	return dataframe.LoadRecords(table, loadOptions()...)
}

// uniqueHeader names blank header cells "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2" and so on, so the first occurrence keeps its name.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		out[i] = name
		taken[name] = true
	}

	seen := make(map[string]int, len(out))
	for i, name := range out {
		n, dup := seen[name]
		if !dup {
			seen[name] = 1
			continue
		}
		candidate := fmt.Sprintf("%s.%d", name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		seen[name] = n + 1
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// WriteCSV writes a table, header included.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	if err := df.WriteCSV(w, dataframe.WriteHeader(true)); err != nil {
		return fmt.Errorf("failed to write csv table: %w", err)
	}
	return nil
}

// HasColumn reports whether the table has a column with exactly this name.
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, col := range df.Names() {
		if col == name {
			return true
		}
	}
	return false
}

// Column returns the text of every cell in the named column.
func Column(df dataframe.DataFrame, name string) ([]string, error) {
	if !HasColumn(df, name) {
		return nil, &MissingColumnsError{Missing: []string{name}}
	}
	return df.Col(name).Records(), nil
}
