package excel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"pharmacy/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var itemHeaderAliases = map[string]string{
	"medicine id":        "medicine_id",
	"medicineid":         "medicine_id",
	"medicine":           "medicine_name",
	"medicine name":      "medicine_name",
	"brand name":         "medicine_name",
	"name":               "medicine_name",
	"quantity":           "quantity",
	"qty":                "quantity",
	"total quantity":     "quantity",
	"batch":              "batch_no",
	"batch no":           "batch_no",
	"batchno":            "batch_no",
	"batch number":       "batch_no",
	"mfg":                "mfg_date",
	"mfg date":           "mfg_date",
	"mfgdate":            "mfg_date",
	"manufacturing date": "mfg_date",
	"expiry":             "expiry_date",
	"expiry date":        "expiry_date",
	"expirydate":         "expiry_date",
	"exp date":           "expiry_date",
	"expdate":            "expiry_date",
}

var cellDateLayouts = []string{
	domain.DateLayout,
	"2/1/2006",
	"01-02-06",
	time.RFC3339,
}

// ParsePurchaseItems reads purchase line-items from an uploaded sheet. Each row
// names its medicine by id or by brand name; resolution happens in the service.
func ParsePurchaseItems(fileName string, reader io.Reader) ([]domain.PurchaseItemImportRow, string, error) {
	rows, format, err := readTable(fileName, reader)
	if err != nil {
		return nil, "", err
	}

	headerIdx := findItemHeader(rows)
	colMap := mapColumns(rows[headerIdx], itemHeaderAliases)
	_, hasID := colMap["medicine_id"]
	_, hasName := colMap["medicine_name"]
	if !hasID && !hasName {
		return nil, "", fmt.Errorf("missing required column: medicine id or medicine name")
	}
	for _, required := range []string{"quantity", "batch_no", "expiry_date"} {
		if _, ok := colMap[required]; !ok {
			return nil, "", fmt.Errorf("missing required column: %s", required)
		}
	}

	result := make([]domain.PurchaseItemImportRow, 0, len(rows)-headerIdx-1)
	for index := headerIdx + 1; index < len(rows); index++ {
		cells := rows[index]
		if isBlankRow(cells) {
			continue
		}
		rowNo := index + 1
		item := domain.PurchaseItemImportRow{Row: rowNo}

		if idx, ok := colMap["medicine_id"]; ok {
			if raw := readCell(cells, idx); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return nil, "", fmt.Errorf("row %d invalid medicine id %q", rowNo, raw)
				}
				item.MedicineID = id
			}
		}
		if idx, ok := colMap["medicine_name"]; ok {
			item.MedicineName = readCell(cells, idx)
		}
		if item.MedicineID == uuid.Nil && item.MedicineName == "" {
			return nil, "", fmt.Errorf("row %d has no medicine", rowNo)
		}

		qty, err := parseInt(readCell(cells, colMap["quantity"]))
		if err != nil {
			return nil, "", fmt.Errorf("row %d invalid quantity: %w", rowNo, err)
		}
		item.Quantity = qty

		item.BatchNo = readCell(cells, colMap["batch_no"])
		if item.BatchNo == "" {
			return nil, "", fmt.Errorf("row %d batch no is empty", rowNo)
		}

		if idx, ok := colMap["mfg_date"]; ok {
			if item.MfgDate, err = parseCellDate(readCell(cells, idx)); err != nil {
				return nil, "", fmt.Errorf("row %d invalid mfg date: %w", rowNo, err)
			}
		}
		if item.ExpiryDate, err = parseCellDate(readCell(cells, colMap["expiry_date"])); err != nil {
			return nil, "", fmt.Errorf("row %d invalid expiry date: %w", rowNo, err)
		}
		if item.ExpiryDate.IsZero() {
			return nil, "", fmt.Errorf("row %d expiry date is empty", rowNo)
		}

		result = append(result, item)
	}

	if len(result) == 0 {
		return nil, "", fmt.Errorf("file has no valid data rows")
	}
	return result, format, nil
}

// findItemHeader returns the first row that carries both a quantity and a
// batch column. Exported sheets have summary rows above the item table.
func findItemHeader(rows [][]string) int {
	for idx, row := range rows {
		colMap := mapColumns(row, itemHeaderAliases)
		_, hasQty := colMap["quantity"]
		_, hasBatch := colMap["batch_no"]
		if hasQty && hasBatch {
			return idx
		}
	}
	return 0
}

func parseInt(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}

	asFloat, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be an integer")
	}
	return int(asFloat), nil
}

// parseCellDate accepts the text layouts spreadsheets usually show and raw
// Excel serial day numbers.
func parseCellDate(raw string) (domain.Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return domain.Date{}, nil
	}
	for _, layout := range cellDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return domain.NewDate(parsed), nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return domain.Date{}, err
		}
		return domain.NewDate(parsed), nil
	}
	return domain.Date{}, fmt.Errorf("unrecognized date %q", raw)
}
