package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/garnizeh/taxi/pkg/models"
)

// AllowedExtensions are the upload extensions ParseFile understands.
var AllowedExtensions = []string{".csv", ".xls", ".xlsx"}

// Allowed reports whether name has an extension ParseFile accepts.
func Allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AllowedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFile picks a parser from the extension of name and returns the
// passengers that have a name. Records are neither validated nor
// deduplicated here; see Classify.
func ParseFile(name string, r io.Reader) ([]models.Passenger, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	case ".xls":
		return ParseXLS(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseCSV reads a semicolon separated file with a header row. Rows with
// fewer columns than the header or with an empty first column are skipped.
// Files that are not valid UTF-8 are read as Windows-1252, which is what
// spreadsheet tools on Windows write by default.
func ParseCSV(r io.Reader) ([]models.Passenger, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("erro ao processar CSV: %w", err)
	}
	if !utf8.Valid(raw) {
		if raw, err = charmap.Windows1252.NewDecoder().Bytes(raw); err != nil {
			return nil, fmt.Errorf("erro ao processar CSV: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("erro ao processar CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := NormalizeHeaders(records[0])
	var out []models.Passenger
	for _, cols := range records[1:] {
		if len(cols) < len(headers) || strings.TrimSpace(cols[0]) == "" {
			continue
		}
		if p := MapColumns(headers, cols); p.Name != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// ParseXLSX reads the first sheet of an xlsx workbook.
func ParseXLSX(r io.Reader) ([]models.Passenger, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("erro ao processar Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("erro ao processar Excel: %w", err)
	}
	return fromRows(rows)
}

// ParseXLS reads the first sheet of a legacy BIFF (.xls) workbook.
func ParseXLS(r io.Reader) ([]models.Passenger, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("erro ao processar Excel: %w", err)
		}
		rs = bytes.NewReader(raw)
	}

	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("erro ao processar Excel: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrEmptyFile
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}
	// Sheet.Row dereferences missing rows, so blank lines are read through
	// ReadAllCells. Capping it at the first sheet's row count keeps the
	// other sheets out.
	return fromRows(wb.ReadAllCells(int(sheet.MaxRow) + 1))
}

// fromRows maps spreadsheet rows, the first being the header.
func fromRows(rows [][]string) ([]models.Passenger, error) {
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	headers := NormalizeHeaders(rows[0])
	var out []models.Passenger
	for _, cols := range rows[1:] {
		if len(cols) == 0 {
			continue
		}
		if p := MapColumns(headers, cols); p.Name != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
