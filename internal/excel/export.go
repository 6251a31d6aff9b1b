package excel

import (
	"fmt"
	"io"

	"pharmacy/internal/domain"

	"github.com/xuri/excelize/v2"
)

const purchaseSheet = "Purchase"

var purchaseItemHeader = []string{"Medicine ID", "Medicine", "Batch No", "Mfg Date", "Expiry Date", "Quantity"}

// WritePurchaseDetails renders a purchase as a workbook: header fields on top,
// then one row per line-item. The item table uses the same headers the importer
// accepts, so an export can be edited and uploaded again.
func WritePurchaseDetails(w io.Writer, details domain.PurchaseDetails) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", purchaseSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	summary := [][2]any{
		{"Invoice No", details.InvoiceNo},
		{"Supplier", details.SupplierName},
		{"Purchase Date", details.PurchaseDate.String()},
		{"Details", details.Details},
	}
	for idx, pair := range summary {
		row := idx + 1
		if err := setRow(file, row, pair[0], pair[1]); err != nil {
			return err
		}
		if err := file.SetCellStyle(purchaseSheet, cellName(1, row), cellName(1, row), bold); err != nil {
			return fmt.Errorf("style summary row %d: %w", row, err)
		}
	}

	headerRow := len(summary) + 2
	header := make([]any, len(purchaseItemHeader))
	for i, title := range purchaseItemHeader {
		header[i] = title
	}
	if err := setRow(file, headerRow, header...); err != nil {
		return err
	}
	lastCol := cellName(len(purchaseItemHeader), headerRow)
	if err := file.SetCellStyle(purchaseSheet, cellName(1, headerRow), lastCol, bold); err != nil {
		return fmt.Errorf("style item header: %w", err)
	}

	for idx, line := range details.Medicines {
		if err := setRow(file, headerRow+1+idx,
			line.MedicineID.String(),
			line.Name,
			line.BatchNo,
			line.MfgDate.String(),
			line.ExpDate.String(),
			line.TotalQuantity,
		); err != nil {
			return err
		}
	}

	if err := file.SetColWidth(purchaseSheet, "A", "A", 38); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := file.SetColWidth(purchaseSheet, "B", "F", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(file *excelize.File, row int, values ...any) error {
	for col, value := range values {
		if err := file.SetCellValue(purchaseSheet, cellName(col+1, row), value); err != nil {
			return fmt.Errorf("set cell %s: %w", cellName(col+1, row), err)
		}
	}
	return nil
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(err)
	}
	return name
}
