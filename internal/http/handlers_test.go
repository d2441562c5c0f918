package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

type summaryRowJSON struct {
	Model     string `json:"model"`
	Warehouse int    `json:"warehouse"`
	Assembly  int    `json:"assembly"`
	Total     int    `json:"total"`
	Suspect   int    `json:"suspect"`
}

type submitJSON struct {
	Transaction struct {
		Timestamp string `json:"timestamp"`
		Action    string `json:"action"`
		Model     string `json:"model"`
		Location  string `json:"location"`
		Quantity  int    `json:"quantity"`
	} `json:"transaction"`
	Total int `json:"total"`
	Form  struct {
		TypedModel  string `json:"typed_model"`
		PickedModel string `json:"picked_model"`
		Location    string `json:"location"`
		Quantity    int    `json:"quantity"`
		ActiveModel string `json:"active_model"`
	} `json:"form"`
}

func TestSubmitAndSummary(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	rr := doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"  abc123 ","location":"Warehouse","quantity":3}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}

	var resp submitJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if resp.Transaction.Model != "ABC123" {
		t.Fatalf("model not normalized: %q", resp.Transaction.Model)
	}
	if resp.Transaction.Action != "Added" || resp.Transaction.Quantity != 3 {
		t.Fatalf("transaction %+v", resp.Transaction)
	}
	if resp.Total != 3 {
		t.Fatalf("running total %d, want 3", resp.Total)
	}

	// The reported total is per (model, location): moving stock onto the
	// assembly line counts from zero there.
	rr = doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Assembly","quantity":2}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("assembly running total %d, want 2", resp.Total)
	}

	rr = doJSON(srv, http.MethodGet, "/summary", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var rows []summaryRowJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("summary rows %d, want 1", len(rows))
	}
	want := summaryRowJSON{Model: "ABC123", Warehouse: 3, Assembly: 2, Total: 5, Suspect: 0}
	if rows[0] != want {
		t.Fatalf("summary row %+v, want %+v", rows[0], want)
	}
}

func TestSubmitDirectionControlsSign(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	rr := doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"TX-9","location":"Assembly","quantity":2,"direction":"Removed"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp submitJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Transaction.Quantity != -2 || resp.Transaction.Action != "Removed" {
		t.Fatalf("transaction %+v, want quantity -2 Removed", resp.Transaction)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	cases := []struct {
		name string
		body string
	}{
		{"empty model", `{"model":"   ","location":"Warehouse","quantity":3}`},
		{"zero quantity", `{"model":"ABC123","location":"Warehouse","quantity":0}`},
		{"bad location", `{"model":"ABC123","location":"Garage","quantity":3}`},
		{"bad direction", `{"model":"ABC123","location":"Warehouse","quantity":3,"direction":"Moved"}`},
	}
	for _, tc := range cases {
		rr := doJSON(srv, http.MethodPost, "/transactions", tc.body, cookie)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status=%d, want 422", tc.name, rr.Code)
		}
	}

	// Nothing should have reached the ledger
	rr := doJSON(srv, http.MethodGet, "/summary", "", cookie)
	var rows []summaryRowJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("invalid submissions left %d rows", len(rows))
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	rr := doJSON(srv, http.MethodPost, "/transactions", `{not json`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestUndoLast(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Warehouse","quantity":3}`, cookie)
	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"TX-9","location":"Assembly","quantity":1}`, cookie)

	rr := doJSON(srv, http.MethodDelete, "/transactions/last", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status=%d", rr.Code)
	}
	var removed struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &removed); err != nil {
		t.Fatalf("decode undo: %v", err)
	}
	if removed.Model != "TX-9" {
		t.Fatalf("undo removed %q, want the newest row TX-9", removed.Model)
	}

	// Drain and hit the empty ledger
	doJSON(srv, http.MethodDelete, "/transactions/last", "", cookie)
	rr = doJSON(srv, http.MethodDelete, "/transactions/last", "", cookie)
	if rr.Code != http.StatusConflict {
		t.Fatalf("undo on empty ledger status=%d, want 409", rr.Code)
	}
}

func TestWipe(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Warehouse","quantity":3}`, cookie)

	rr := doJSON(srv, http.MethodDelete, "/transactions", "", cookie)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("wipe status=%d", rr.Code)
	}

	rr = doJSON(srv, http.MethodGet, "/summary", "", cookie)
	var rows []summaryRowJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("%d rows survived the wipe", len(rows))
	}
}

func TestSummaryFilter(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Warehouse","quantity":3}`, cookie)
	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"TX-9","location":"Assembly","quantity":1}`, cookie)

	rr := doJSON(srv, http.MethodGet, "/summary?filter=tx", "", cookie)
	var rows []summaryRowJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(rows) != 1 || rows[0].Model != "TX-9" {
		t.Fatalf("filtered rows %+v, want only TX-9", rows)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"FIRST","location":"Warehouse","quantity":1}`, cookie)
	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"SECOND","location":"Warehouse","quantity":1}`, cookie)

	rr := doJSON(srv, http.MethodGet, "/history", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status=%d", rr.Code)
	}
	var entries []struct {
		Model   string `json:"model"`
		Display string `json:"display"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries %d, want 2", len(entries))
	}
	if entries[0].Model != "SECOND" || entries[1].Model != "FIRST" {
		t.Fatalf("history order %+v, want newest first", entries)
	}
	if !strings.HasPrefix(entries[0].Display, "[") {
		t.Fatalf("display line %q misses the clock prefix", entries[0].Display)
	}
}

func TestModels(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"TX-9","location":"Warehouse","quantity":1}`, cookie)
	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Warehouse","quantity":1}`, cookie)

	rr := doJSON(srv, http.MethodGet, "/models", "", cookie)
	var models []string
	if err := json.Unmarshal(rr.Body.Bytes(), &models); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(models) != 2 || models[0] != "ABC123" || models[1] != "TX-9" {
		t.Fatalf("models %v, want sorted [ABC123 TX-9]", models)
	}
}

func TestFormLastWriterWins(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	rr := doJSON(srv, http.MethodPut, "/form", `{"typed_model":"ab"}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("form put status=%d", rr.Code)
	}
	var form struct {
		TypedModel  string `json:"typed_model"`
		PickedModel string `json:"picked_model"`
		ActiveModel string `json:"active_model"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.ActiveModel != "ab" {
		t.Fatalf("active model %q, want ab", form.ActiveModel)
	}

	rr = doJSON(srv, http.MethodPut, "/form", `{"picked_model":"CD-1"}`, cookie)
	if err := json.Unmarshal(rr.Body.Bytes(), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.TypedModel != "" || form.ActiveModel != "CD-1" {
		t.Fatalf("picking should clear typed text, got %+v", form)
	}

	rr = doJSON(srv, http.MethodPut, "/form", `{"typed_model":"ef"}`, cookie)
	if err := json.Unmarshal(rr.Body.Bytes(), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.PickedModel != "" || form.ActiveModel != "ef" {
		t.Fatalf("typing should clear the pick, got %+v", form)
	}

	// State survives across requests
	rr = doJSON(srv, http.MethodGet, "/form", "", cookie)
	if err := json.Unmarshal(rr.Body.Bytes(), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.ActiveModel != "ef" {
		t.Fatalf("form state lost between requests: %+v", form)
	}
}

func TestFormIsPerSession(t *testing.T) {
	srv := newTestServer()
	first := login(t, srv)
	second := login(t, srv)

	doJSON(srv, http.MethodPut, "/form", `{"typed_model":"MINE","quantity":5}`, first)

	rr := doJSON(srv, http.MethodGet, "/form", "", second)
	var form struct {
		TypedModel string `json:"typed_model"`
		Quantity   int    `json:"quantity"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.TypedModel != "" || form.Quantity != 1 {
		t.Fatalf("second session sees first session's form: %+v", form)
	}
}

func TestFormRejectsBadLocation(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	rr := doJSON(srv, http.MethodPut, "/form", `{"location":"Garage"}`, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
}

func TestSubmitResetsForm(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPut, "/form",
		`{"typed_model":"abc123","quantity":5,"location":"Assembly"}`, cookie)

	rr := doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Assembly","quantity":5}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d", rr.Code)
	}
	var resp submitJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Form.TypedModel != "" || resp.Form.PickedModel != "" {
		t.Fatalf("model fields survived the reset: %+v", resp.Form)
	}
	if resp.Form.Quantity != 1 {
		t.Fatalf("quantity after reset %d, want 1", resp.Form.Quantity)
	}
	if resp.Form.Location != "Assembly" {
		t.Fatalf("location should stick after submit, got %q", resp.Form.Location)
	}
}

func TestExportSummaryCSV(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Warehouse","quantity":3}`, cookie)

	rr := doJSON(srv, http.MethodGet, "/export/summary.csv", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("Content-Type %q", got)
	}
	disp := rr.Header().Get("Content-Disposition")
	if !strings.Contains(disp, `attachment; filename="Inventory_`) || !strings.Contains(disp, `.csv"`) {
		t.Fatalf("Content-Disposition %q", disp)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "Model,Warehouse,Assembly,Total,Suspect (Bad)\n") {
		t.Fatalf("export body:\n%s", body)
	}
	if !strings.Contains(body, "ABC123,3,0,3,0") {
		t.Fatalf("export misses the row:\n%s", body)
	}
}

func TestExportHistoryXLSX(t *testing.T) {
	srv := newTestServer()
	cookie := login(t, srv)

	doJSON(srv, http.MethodPost, "/transactions",
		`{"model":"ABC123","location":"Warehouse","quantity":3}`, cookie)

	rr := doJSON(srv, http.MethodGet, "/export/history.xlsx", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("Content-Type %q", got)
	}
	disp := rr.Header().Get("Content-Disposition")
	if !strings.Contains(disp, `filename="History_`) || !strings.Contains(disp, `.xlsx"`) {
		t.Fatalf("Content-Disposition %q", disp)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("empty xlsx body")
	}
}
