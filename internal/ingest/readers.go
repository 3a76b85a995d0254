package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pharmaflow/internal/models"
)

// Format identifies an upload encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// FormatFromFilename picks the format by extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadCSV reads a header row followed by data rows. Rows the CSV reader
// rejects are counted as skipped rather than failing the whole file.
func ReadCSV(r io.Reader) ([]Row, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	bound := bindHeaders(headers)

	var rows []Row
	malformed := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				malformed++
				continue
			}
			return nil, malformed, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, toRow(record, bound))
	}
	return rows, malformed, nil
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	// Raw values keep date cells as serial day numbers and amounts free of
	// their display format.
	cells, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, nil
	}

	bound := bindHeaders(cells[0])
	rows := make([]Row, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, toRow(record, bound))
	}
	return rows, nil
}

func toRow(record []string, bound map[int]string) Row {
	row := make(Row, len(bound))
	for i, column := range bound {
		if i < len(record) {
			row[column] = record[i]
		}
	}
	return row
}

// Read decodes and normalizes a whole upload.
func Read(ctx context.Context, r io.Reader, format Format) ([]models.RawRecord, Report, error) {
	var (
		rows      []Row
		malformed int
		err       error
	)
	switch format {
	case FormatCSV:
		rows, malformed, err = ReadCSV(r)
	case FormatXLSX:
		rows, err = ReadXLSX(r)
	default:
		return nil, Report{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, Report{}, err
	}

	records, report, err := NormalizeAll(ctx, rows)
	if err != nil {
		return nil, report, err
	}
	report.Rows += malformed
	report.Skipped += malformed
	return records, report, nil
}
