// Package google backs sales up to a Google Sheets spreadsheet. Each
// sale occupies one row keyed on its database ID in column A, so
// exports are upserts and deletes clear the matching row.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"chipdash/internal/core"
	ports "chipdash/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.SaleExporter = (*Client)(nil)

// Config selects the spreadsheet and the credentials source. Exactly
// one of CredentialsJSON or CredentialsFile is needed; with neither,
// the client falls back to application default credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "sales"
	}

	opts := []goption.ClientOption{
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("credentials file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

// ExportSale writes the sale as one spreadsheet row. An existing row
// with the same ID in column A is overwritten; otherwise the row is
// appended after the current data.
func (c *Client) ExportSale(ctx context.Context, s core.Sale) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	values := []any{
		strconv.FormatInt(s.ID, 10),
		s.CreatedAt.Format("2006-01-02 15:04:05"),
		string(s.DisplayPeriod()),
		s.ChipType,
		s.ChipNumber,
		string(s.SizeCls),
		s.SizeDigits,
		s.PriceTotal,
		s.StoreName,
		s.Note,
	}

	row, err := c.findRowByID(ctx, s.ID)
	if err != nil {
		return err
	}

	if row == 0 {
		rng := fmt.Sprintf("%s!A:J", c.sheetName)
		vr := &gsheet.ValueRange{Values: [][]any{values}}
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append row to sheet %s: %w", c.sheetName, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:J%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d in sheet %s: %w", row, c.sheetName, err)
	}
	return nil
}

// RemoveSale clears the row holding the given sale ID. A missing row is
// not an error: the delete already converged.
func (c *Client) RemoveSale(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRowByID(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:J%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %d in sheet %s: %w", row, c.sheetName, err)
	}
	return nil
}

// findRowByID scans column A for the sale ID and returns its 1-based
// row number, or 0 when absent.
func (c *Client) findRowByID(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ID column of sheet %s: %w", c.sheetName, err)
	}

	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cell, ok := row[0].(string); ok && cell == want {
			return i + 1, nil
		}
	}
	return 0, nil
}
