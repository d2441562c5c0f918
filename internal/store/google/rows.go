package google

import (
	"fmt"
	"strings"
	"time"

	"stocktake/internal/core"
)

// columnIndex holds the position of each canonical column in the header
// row, -1 when absent.
type columnIndex struct {
	timestamp int
	action    int
	model     int
	location  int
	quantity  int
}

// mapColumns locates the canonical columns by header name, case
// insensitively. Only Model is mandatory; without it the sheet does not
// hold a ledger at all.
func mapColumns(header []string) (columnIndex, bool) {
	idx := columnIndex{timestamp: -1, action: -1, model: -1, location: -1, quantity: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp":
			if idx.timestamp == -1 {
				idx.timestamp = i
			}
		case "action":
			if idx.action == -1 {
				idx.action = i
			}
		case "model":
			if idx.model == -1 {
				idx.model = i
			}
		case "location":
			if idx.location == -1 {
				idx.location = i
			}
		case "quantity":
			if idx.quantity == -1 {
				idx.quantity = i
			}
		}
	}
	return idx, idx.model != -1
}

// parseRow converts one sheet row to a transaction. Rows with an empty
// model or an unreadable quantity are unusable and reported false; other
// oddities are tolerated so one bad cell never hides the rest of the
// ledger.
func parseRow(cols []string, idx columnIndex) (core.Transaction, bool) {
	model := core.NormalizeModel(cell(cols, idx.model))
	if model == "" {
		return core.Transaction{}, false
	}
	qty, err := core.ParseQuantity(cell(cols, idx.quantity))
	if err != nil {
		return core.Transaction{}, false
	}

	ts, _ := time.ParseInLocation(core.TimestampLayout, cell(cols, idx.timestamp), time.Local)
	action := core.Action(strings.TrimSpace(cell(cols, idx.action)))
	if action == "" {
		action = core.ActionFor(qty)
	}
	return core.Transaction{
		Timestamp: ts,
		Action:    action,
		Model:     model,
		Location:  core.Location(strings.TrimSpace(cell(cols, idx.location))),
		Quantity:  qty,
	}, true
}

// rowCells renders a transaction in canonical column order for appending.
func rowCells(tx core.Transaction) []any {
	return []any{
		tx.Timestamp.Format(core.TimestampLayout),
		string(tx.Action),
		tx.Model,
		string(tx.Location),
		tx.Quantity,
	}
}

func cell(cols []string, i int) string {
	if i < 0 || i >= len(cols) {
		return ""
	}
	return cols[i]
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
