package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"stocktake/internal/core"
	"stocktake/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client persists the ledger in one worksheet of a Google spreadsheet,
// columns A:E in the canonical order. Rows are appended natively and the
// last row is deleted in place, so the sheet is never rewritten wholesale
// and concurrent writers cannot clobber each other's rows.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string

	mu            sync.Mutex
	sheetID       int64
	sheetIDKnown  bool
	headerChecked bool
}

var _ store.Store = (*Client)(nil)

// NewFromEnv creates a Sheets-backed store using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Inventory") and one of
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheet == "" {
		sheet = "Inventory"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheet), nil
}

// New wraps an already built Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, ledgerSheet: sheet}
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ledgerRange() string {
	return fmt.Sprintf("%s!A:E", c.ledgerSheet)
}

// ReadAll fetches the whole ledger range and parses it tolerantly. A sheet
// with no rows, or whose header row lacks a Model column, reads as an empty
// ledger. Data rows with an empty model or an unreadable quantity are
// skipped.
func (c *Client) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.ledgerRange()
	var resp *gsheet.ValueRange
	err := c.withRetry(ctx, "read ledger", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	idx, ok := mapColumns(toStrings(resp.Values[0]))
	if !ok {
		slog.WarnContext(ctx, "Ledger sheet has no Model column, treating as empty", "sheet", c.ledgerSheet)
		return nil, nil
	}
	txs := make([]core.Transaction, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		tx, ok := parseRow(toStrings(row), idx)
		if !ok {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.ensureHeader(ctx); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowCells(tx)}}
	var resp *gsheet.AppendValuesResponse
	err := c.withRetry(ctx, "append row", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.ledgerRange(), vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.ledgerSheet, err)
	}
	ref := c.ledgerRange()
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// RemoveLast deletes the bottom row of the ledger table in place. The
// deletion is positional: whatever occupies the last physical row goes,
// parseable or not, and the parsed transaction is returned best-effort.
func (c *Client) RemoveLast(ctx context.Context) (core.Transaction, error) {
	if c.svc == nil {
		return core.Transaction{}, errors.New("sheets service not initialized")
	}
	rng := c.ledgerRange()
	var resp *gsheet.ValueRange
	err := c.withRetry(ctx, "read ledger", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return core.Transaction{}, store.ErrEmptyLedger
	}
	idx, ok := mapColumns(toStrings(resp.Values[0]))
	if !ok || len(resp.Values) == 1 {
		return core.Transaction{}, store.ErrEmptyLedger
	}

	lastRow := len(resp.Values) - 1 // zero-based sheet row index
	sheetID, err := c.numericSheetID(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(lastRow),
					EndIndex:   int64(lastRow + 1),
				},
			},
		}},
	}
	err = c.withRetry(ctx, "delete last row", func() error {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete row %d in %s: %w", lastRow+1, c.ledgerSheet, err)
	}

	tx, _ := parseRow(toStrings(resp.Values[lastRow]), idx)
	return tx, nil
}

// Wipe clears every data row but keeps the header in place.
func (c *Client) Wipe(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:E", c.ledgerSheet)
	err := c.withRetry(ctx, "wipe ledger", func() error {
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ensureHeader writes the canonical header row once per process if the
// sheet starts out blank. Two instances racing here both write the same
// header, which is harmless.
func (c *Client) ensureHeader(ctx context.Context) error {
	c.mu.Lock()
	checked := c.headerChecked
	c.mu.Unlock()
	if checked {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:E1", c.ledgerSheet)
	var resp *gsheet.ValueRange
	err := c.withRetry(ctx, "check header", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		header := make([]any, len(store.Columns))
		for i, name := range store.Columns {
			header[i] = name
		}
		vr := &gsheet.ValueRange{Values: [][]any{header}}
		err = c.withRetry(ctx, "write header", func() error {
			_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
				ValueInputOption("RAW").Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("write header to %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Wrote ledger header row", "sheet", c.ledgerSheet)
	}

	c.mu.Lock()
	c.headerChecked = true
	c.mu.Unlock()
	return nil
}

// numericSheetID resolves the worksheet title to its numeric id, once.
func (c *Client) numericSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.sheetIDKnown {
		id := c.sheetID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var meta *gsheet.Spreadsheet
	err := c.withRetry(ctx, "resolve sheet id", func() error {
		var err error
		meta, err = c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.ledgerSheet {
			c.mu.Lock()
			c.sheetID = sh.Properties.SheetId
			c.sheetIDKnown = true
			c.mu.Unlock()
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.ledgerSheet)
}
