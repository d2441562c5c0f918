// Package export renders summary and history views as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"stocktake/internal/core"
	"stocktake/internal/store"
)

// SummaryHeader is the exact column order of an exported summary. The
// suspect column is labelled so nobody mistakes defective units for stock.
var SummaryHeader = []string{"Model", "Warehouse", "Assembly", "Total", "Suspect (Bad)"}

// Filename builds the timestamped download name, minute precision, for
// example "Inventory_2025-03-01_14-03.csv".
func Filename(prefix string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("2006-01-02_15-04"), ext)
}

// WriteSummaryCSV writes aggregated rows as CSV, header first.
func WriteSummaryCSV(w io.Writer, rows []core.SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Model,
			strconv.Itoa(row.Warehouse),
			strconv.Itoa(row.Assembly),
			strconv.Itoa(row.Total),
			strconv.Itoa(row.Suspect),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes raw ledger rows as CSV in canonical column order.
func WriteHistoryCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(store.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			tx.Timestamp.Format(core.TimestampLayout),
			string(tx.Action),
			tx.Model,
			string(tx.Location),
			strconv.Itoa(tx.Quantity),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
