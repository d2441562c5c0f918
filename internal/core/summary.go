package core

import (
	"sort"
	"strings"
)

// SummaryRow is the aggregate position of one model across locations.
// Total counts usable stock only (Warehouse + Assembly); Suspect is
// reported separately and never added in.
type SummaryRow struct {
	Model     string
	Warehouse int
	Assembly  int
	Total     int
	Suspect   int
}

// Summarize folds a ledger into per-model rows. Quantities are summed with
// their signs per location, Total = Warehouse + Assembly, and a model appears
// only while it has a nonzero Total or a nonzero Suspect count. Rows come
// back sorted by model code. The input order does not matter.
func Summarize(txs []Transaction) []SummaryRow {
	acc := make(map[string]*SummaryRow)
	for _, t := range txs {
		row, ok := acc[t.Model]
		if !ok {
			row = &SummaryRow{Model: t.Model}
			acc[t.Model] = row
		}
		switch t.Location {
		case Warehouse:
			row.Warehouse += t.Quantity
		case Assembly:
			row.Assembly += t.Quantity
		case Suspect:
			row.Suspect += t.Quantity
		}
	}

	rows := make([]SummaryRow, 0, len(acc))
	for _, row := range acc {
		row.Total = row.Warehouse + row.Assembly
		if row.Total == 0 && row.Suspect == 0 {
			continue
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Model < rows[j].Model })
	return rows
}

// FilterRows keeps rows whose model contains the query as a substring.
// Matching is case-insensitive and applies to already aggregated rows, so a
// filtered view still shows true totals. An empty query keeps everything.
func FilterRows(rows []SummaryRow, query string) []SummaryRow {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	out := make([]SummaryRow, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(row.Model, q) {
			out = append(out, row)
		}
	}
	return out
}

// Models lists the distinct model codes present in the ledger, sorted.
// Unlike Summarize it keeps models whose balances have returned to zero,
// so pickers can still offer codes that were ever used.
func Models(txs []Transaction) []string {
	seen := make(map[string]struct{})
	for _, t := range txs {
		seen[t.Model] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
