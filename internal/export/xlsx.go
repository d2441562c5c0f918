package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"stocktake/internal/core"
	"stocktake/internal/store"
)

const sheetName = "Sheet1"

// WriteSummaryXLSX writes aggregated rows as an Excel workbook.
func WriteSummaryXLSX(w io.Writer, rows []core.SummaryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	writeHeader(f, SummaryHeader)
	for i, row := range rows {
		n := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+n, row.Model)
		f.SetCellValue(sheetName, "B"+n, row.Warehouse)
		f.SetCellValue(sheetName, "C"+n, row.Assembly)
		f.SetCellValue(sheetName, "D"+n, row.Total)
		f.SetCellValue(sheetName, "E"+n, row.Suspect)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteHistoryXLSX writes raw ledger rows as an Excel workbook.
func WriteHistoryXLSX(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	writeHeader(f, store.Columns)
	for i, tx := range txs {
		n := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+n, tx.Timestamp.Format(core.TimestampLayout))
		f.SetCellValue(sheetName, "B"+n, string(tx.Action))
		f.SetCellValue(sheetName, "C"+n, tx.Model)
		f.SetCellValue(sheetName, "D"+n, string(tx.Location))
		f.SetCellValue(sheetName, "E"+n, tx.Quantity)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, names []string) {
	col := 'A'
	for _, name := range names {
		f.SetCellValue(sheetName, string(col)+"1", name)
		col++
	}
}
