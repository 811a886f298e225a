package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data line of an uploaded table keyed by its raw header.
type Row struct {
	Line   int
	Fields map[string]string
}

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported upload format")

// ReadFile loads rows from a .csv or .xlsx file on disk.
func ReadFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	return ReadUpload(filepath.Base(path), file)
}

// ReadUpload loads rows from r, choosing the decoder by the file name extension.
func ReadUpload(name string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return readCSV(r)
	case ".xlsx", ".xlsm":
		return readWorkbook(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FromMaps wraps already-decoded rows (for example a JSON body).
func FromMaps(records []map[string]string) []Row {
	rows := make([]Row, 0, len(records))
	for i, record := range records {
		rows = append(rows, Row{Line: i + 1, Fields: record})
	}
	return rows
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return tableRows(records)
}

func readWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tableRows(records)
}

// tableRows uses the first non-empty record as the header. Line numbers are
// 1-based positions in the source table.
func tableRows(records [][]string) ([]Row, error) {
	headerIdx := -1
	for i, record := range records {
		if !blankRecord(record) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, errors.New("upload has no header row")
	}

	header := make([]string, len(records[headerIdx]))
	for i, cell := range records[headerIdx] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
	}

	rows := make([]Row, 0, len(records)-headerIdx-1)
	for i := headerIdx + 1; i < len(records); i++ {
		record := records[i]
		if blankRecord(record) {
			continue
		}
		fields := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" || j >= len(record) {
				continue
			}
			fields[name] = strings.TrimSpace(record[j])
		}
		rows = append(rows, Row{Line: i + 1, Fields: fields})
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
