package processor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"voiceagent-server/internal/targeting"

	"github.com/xuri/excelize/v2"
)

// Format of an uploaded contact file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	errEmptyFile       = errors.New("file has no header row")
	errMissingColumns  = errors.New("file needs a name column and an email or phone column")
	errLegacyExcel     = errors.New("legacy .xls workbooks are not supported, save the file as .xlsx")
	errUnsupportedType = errors.New("unsupported file format")
)

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case "xls":
		return "", errLegacyExcel
	}
	return "", fmt.Errorf("%w: %q", errUnsupportedType, s)
}

// FormatFromFilename infers the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// parseRows decodes raw bytes into candidate rows. Any failure is a *targeting.ParseError.
func parseRows(raw []byte, format Format) ([]Row, error) {
	var records [][]string
	var err error
	switch format {
	case FormatCSV:
		records, err = readCSV(raw)
	case FormatXLSX:
		records, err = readXLSX(raw)
	default:
		err = fmt.Errorf("%w: %q", errUnsupportedType, format)
	}
	if err != nil {
		return nil, &targeting.ParseError{Format: string(format), Err: err}
	}

	rows, err := recordsToRows(records)
	if err != nil {
		return nil, &targeting.ParseError{Format: string(format), Err: err}
	}
	return rows, nil
}

func readCSV(raw []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errEmptyFile
	}
	return f.GetRows(sheets[0])
}

func recordsToRows(records [][]string) ([]Row, error) {
	// Leading blank lines are skipped so the first non-empty record is the header.
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errEmptyFile
	}

	fields := mapHeaders(records[start])
	if !hasRequiredColumns(fields) {
		return nil, errMissingColumns
	}

	var rows []Row
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		row := Row{Line: i + 1, Fields: make(map[string]string, len(fields))}
		for col, field := range fields {
			if field == "" || col >= len(rec) {
				continue
			}
			row.Fields[field] = rec[col]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func hasRequiredColumns(fields []string) bool {
	var name, contact bool
	for _, f := range fields {
		switch f {
		case fieldName, fieldFirstName, fieldLastName:
			name = true
		case fieldEmail, fieldPhone:
			contact = true
		}
	}
	return name && contact
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
