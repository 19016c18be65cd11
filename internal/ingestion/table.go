package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetRowLimit caps the data rows rendered per spreadsheet sheet.
const sheetRowLimit = 40

// tableText renders a tabular file as plain text for chunking. CSV files are
// returned verbatim under a "Table:" header. Spreadsheets are rendered sheet
// by sheet as a header row plus the first data rows re-encoded as CSV.
func tableText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ingestion: read %s: %w", path, err)
		}
		return "Table: " + filepath.Base(path) + "\n" + strings.ToValidUTF8(string(raw), ""), nil
	case ".xlsx":
		return workbookText(path)
	default:
		return "", fmt.Errorf("ingestion: %s is not a table", path)
	}
}

func workbookText(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("ingestion: open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var sheets []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("ingestion: read sheet %q of %s: %w", name, path, err)
		}
		snippet, err := sheetCSV(rows, sheetRowLimit)
		if err != nil {
			return "", fmt.Errorf("ingestion: encode sheet %q of %s: %w", name, path, err)
		}
		if snippet == "" {
			continue
		}
		sheets = append(sheets, "Sheet: "+name+"\n"+snippet)
	}
	return strings.Join(sheets, "\n\n"), nil
}

// sheetCSV encodes the header row and up to limit non-blank data rows. It
// returns "" for a sheet with no data rows. Rows are padded to the widest row
// because the reader drops trailing empty cells.
func sheetCSV(rows [][]string, limit int) (string, error) {
	if len(rows) < 2 {
		return "", nil
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}

	data := make([][]string, 0, limit)
	for _, r := range rows[1:] {
		if len(data) == limit {
			break
		}
		if blankRow(r) {
			continue
		}
		data = append(data, pad(r, width))
	}
	if len(data) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(pad(rows[0], width)); err != nil {
		return "", err
	}
	if err := w.WriteAll(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(r []string, width int) []string {
	if len(r) >= width {
		return r
	}
	out := make([]string, width)
	copy(out, r)
	return out
}
