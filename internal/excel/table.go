package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// readTable loads the first sheet of a workbook, or a CSV file, as raw rows.
// The extension picks the reader; unknown extensions try xlsx then csv.
func readTable(fileName string, reader io.Reader) ([][]string, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("input file is empty")
	}

	switch strings.ToLower(strings.TrimSpace(filepath.Ext(fileName))) {
	case ".csv":
		rows, err := parseCSVRows(data)
		return rows, FormatCSV, err
	case ".xlsx", ".xlsm":
		rows, err := parseExcelRows(data)
		return rows, FormatXLSX, err
	default:
		if rows, err := parseExcelRows(data); err == nil {
			return rows, FormatXLSX, nil
		}
		if rows, err := parseCSVRows(data); err == nil {
			return rows, FormatCSV, nil
		}
		return nil, "", fmt.Errorf("unsupported or invalid file format")
	}
}

func parseCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	return rows, nil
}

func parseExcelRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}
	return rows, nil
}

func mapColumns(header []string, aliases map[string]string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := aliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.NewReplacer("_", " ", ".", " ", "-", " ").Replace(value)
	return strings.Join(strings.Fields(value), " ")
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
