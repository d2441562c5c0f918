package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stocktake/internal/core"
	"stocktake/internal/export"
	"stocktake/internal/ledger"
	"stocktake/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type loginRequest struct {
	Password string `json:"password"`
}

type submitRequest struct {
	Model     string `json:"model"`
	Location  string `json:"location"`
	Quantity  int    `json:"quantity"`
	Direction string `json:"direction"`
}

type formUpdateRequest struct {
	TypedModel  *string `json:"typed_model"`
	PickedModel *string `json:"picked_model"`
	Quantity    *int    `json:"quantity"`
	Location    *string `json:"location"`
	Direction   *string `json:"direction"`
}

type transactionResponse struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Model     string `json:"model"`
	Location  string `json:"location"`
	Quantity  int    `json:"quantity"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		Timestamp: tx.Timestamp.Format(core.TimestampLayout),
		Action:    string(tx.Action),
		Model:     tx.Model,
		Location:  string(tx.Location),
		Quantity:  tx.Quantity,
	}
}

type summaryRowResponse struct {
	Model     string `json:"model"`
	Warehouse int    `json:"warehouse"`
	Assembly  int    `json:"assembly"`
	Total     int    `json:"total"`
	Suspect   int    `json:"suspect"`
}

type historyEntryResponse struct {
	transactionResponse
	Display string `json:"display"`
}

type formResponse struct {
	session.Entry
	ActiveModel string `json:"active_model"`
}

func toFormResponse(e session.Entry) formResponse {
	return formResponse{Entry: e, ActiveModel: e.ActiveModel()}
}

type submitResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Total       int                 `json:"total"`
	Form        formResponse        `json:"form"`
}

// handleLogin trades the shared password for a session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password != s.password {
		slog.WarnContext(r.Context(), "Login rejected")
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	token, _ := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionTTL.Seconds()),
	})
	slog.InfoContext(r.Context(), "Operator logged in")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.Destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodDelete:
		s.handleWipe(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, total, err := s.ledger.Submit(r.Context(),
		req.Model, core.Location(req.Location), req.Quantity, core.Action(req.Direction))
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Transaction append failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not save the transaction, try again later")
		return
	}

	form := sessionFrom(r.Context()).ResetAfterSubmit()
	writeJSON(w, http.StatusCreated, submitResponse{
		Transaction: toTransactionResponse(tx),
		Total:       total,
		Form:        toFormResponse(form),
	})
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Wipe(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Ledger wipe failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not wipe the ledger, try again later")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUndoLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tx, err := s.ledger.UndoLast(r.Context())
	if errors.Is(err, ledger.ErrNothingToUndo) {
		writeError(w, http.StatusConflict, "nothing to undo")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Undo failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not undo, try again later")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rows, err := s.ledger.Summary(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}

	out := make([]summaryRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, summaryRowResponse{
			Model:     row.Model,
			Warehouse: row.Warehouse,
			Assembly:  row.Assembly,
			Total:     row.Total,
			Suspect:   row.Suspect,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	txs, err := s.ledger.History(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "History read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}

	out := make([]historyEntryResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, historyEntryResponse{
			transactionResponse: toTransactionResponse(tx),
			Display:             tx.DisplayLine(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	models, err := s.ledger.ModelOptions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Model options read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, models)
}

// handleForm reads or stages the per-session entry form. A PUT naming both
// model fields ends with the pick winning, SetPicked runs last.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	state := sessionFrom(r.Context())

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toFormResponse(state.Form()))

	case http.MethodPut:
		var req formUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Location != nil {
			if err := core.Location(*req.Location).Validate(); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
		}
		if req.Direction != nil {
			if err := core.Action(*req.Direction).Validate(); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
		}

		form := state.Update(func(e *session.Entry) {
			if req.TypedModel != nil {
				e.SetTyped(*req.TypedModel)
			}
			if req.PickedModel != nil {
				e.SetPicked(*req.PickedModel)
			}
			if req.Quantity != nil {
				e.Quantity = *req.Quantity
			}
			if req.Location != nil {
				e.Location = core.Location(*req.Location)
			}
			if req.Direction != nil {
				e.Action = core.Action(*req.Direction)
			}
		})
		writeJSON(w, http.StatusOK, toFormResponse(form))

	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleExportSummaryCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rows, err := s.ledger.Summary(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary export failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}

	sendAttachment(w, export.Filename("Inventory", time.Now(), "csv"), "text/csv")
	if err := export.WriteSummaryCSV(w, rows); err != nil {
		slog.ErrorContext(r.Context(), "Summary CSV write failed", "error", err)
	}
}

func (s *Server) handleExportSummaryXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rows, err := s.ledger.Summary(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary export failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}

	sendAttachment(w, export.Filename("Inventory", time.Now(), "xlsx"), xlsxContentType)
	if err := export.WriteSummaryXLSX(w, rows); err != nil {
		slog.ErrorContext(r.Context(), "Summary XLSX write failed", "error", err)
	}
}

func (s *Server) handleExportHistoryCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.ledger.Transactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "History export failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}

	sendAttachment(w, export.Filename("History", time.Now(), "csv"), "text/csv")
	if err := export.WriteHistoryCSV(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "History CSV write failed", "error", err)
	}
}

func (s *Server) handleExportHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.ledger.Transactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "History export failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not read the ledger, try again later")
		return
	}

	sendAttachment(w, export.Filename("History", time.Now(), "xlsx"), xlsxContentType)
	if err := export.WriteHistoryXLSX(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "History XLSX write failed", "error", err)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if _, err := s.ledger.Summary(ctx, ""); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["sessions"] = map[string]interface{}{
		"active": s.sessions.Len(),
		"status": "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrEmptyModel) ||
		errors.Is(err, core.ErrZeroQuantity) ||
		errors.Is(err, core.ErrInvalidLocation) ||
		errors.Is(err, core.ErrInvalidAction)
}

func sendAttachment(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
